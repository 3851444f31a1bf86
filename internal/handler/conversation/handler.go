package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lunarhue/promptii/backend/internal/identity"
	"github.com/lunarhue/promptii/backend/internal/middleware"
	"github.com/lunarhue/promptii/backend/internal/service/refine"
	"github.com/lunarhue/promptii/backend/pkg/utils"
)

// Handler exposes the refinement state machine over HTTP.
type Handler struct {
	refineSvc *refine.Service
}

// New creates the conversation handler.
func New(refineSvc *refine.Service) *Handler {
	return &Handler{refineSvc: refineSvc}
}

// RegisterRoutes registers the conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreate)
	r.Get("/conversations/{conversationID}", h.handleGet)
	r.Post("/conversations/{conversationID}/idea", h.handleSubmitIdea)
	r.Post("/conversations/{conversationID}/answers", h.handleSubmitAnswer)
	r.Post("/conversations/{conversationID}/retry", h.handleRetry)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	conv := h.refineSvc.NewConversation(r.Context())
	utils.RespondJSON(w, http.StatusCreated, conv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	conv, err := h.refineSvc.Get(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondRefineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleSubmitIdea(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The tier is resolved on every submission, never cached: entitlement can
	// change mid-session.
	claims := middleware.ClaimsFromContext(r.Context())
	tier := identity.ResolveTier(claims)
	scope := middleware.ScopeFromContext(r.Context())

	conv, err := h.refineSvc.SubmitIdea(r.Context(), chi.URLParam(r, "conversationID"), payload.Text, tier, scope)
	if err != nil {
		respondRefineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Field == "" {
		utils.RespondError(w, http.StatusBadRequest, "field is required")
		return
	}

	scope := middleware.ScopeFromContext(r.Context())
	conv, err := h.refineSvc.SubmitAnswer(r.Context(), chi.URLParam(r, "conversationID"), payload.Field, payload.Value, scope)
	if err != nil {
		respondRefineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	conv, err := h.refineSvc.Retry(r.Context(), chi.URLParam(r, "conversationID"), scope)
	if err != nil {
		respondRefineError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}

func respondRefineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, refine.ErrConversationNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, refine.ErrInputNotAccepted), errors.Is(err, refine.ErrFieldAnswered):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, refine.ErrEmptyInput), errors.Is(err, refine.ErrUnknownField):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
