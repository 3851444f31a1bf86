package history

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lunarhue/promptii/backend/internal/middleware"
	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
	historyservice "github.com/lunarhue/promptii/backend/internal/service/history"
	"github.com/lunarhue/promptii/backend/internal/service/refine"
	"github.com/lunarhue/promptii/backend/pkg/utils"
)

// Handler exposes the caller's history scope and the sign-in merge.
type Handler struct {
	store     historyservice.Store
	refineSvc *refine.Service
}

// New creates the history handler.
func New(store historyservice.Store, refineSvc *refine.Service) *Handler {
	return &Handler{store: store, refineSvc: refineSvc}
}

// RegisterRoutes registers the history routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleList)
	r.Post("/history/load/{conversationID}", h.handleLoad)
	r.Post("/history/merge", h.handleMerge)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	items, err := h.store.List(r.Context(), scope)
	if err != nil {
		log.Printf("[history] list failed for scope=%s: %v", scope, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if items == nil {
		items = []historymodel.Item{}
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

// handleLoad seeds the live session from a stored conversation.
func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	scope := middleware.ScopeFromContext(r.Context())
	conv, err := h.refineSvc.LoadFromHistory(r.Context(), scope, chi.URLParam(r, "conversationID"))
	if err != nil {
		if errors.Is(err, historyservice.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Printf("[history] load failed for scope=%s: %v", scope, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv)
}

// handleMerge transplants the anonymous scope into the caller's identity
// scope. The client invokes it once per sign-in transition; invoking it again
// is a no-op because the anonymous scope has been cleared.
func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if !claims.IsAuthenticated {
		utils.RespondError(w, http.StatusUnauthorized, "sign-in required to merge history")
		return
	}

	destination := historymodel.ScopeForSubject(claims.SubjectID)
	moved, err := historyservice.MergeInto(r.Context(), h.store, historymodel.ScopeAnonymous, destination)
	if err != nil {
		log.Printf("[history] merge into scope=%s failed: %v", destination, err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to merge history")
		return
	}

	log.Printf("[history] merged %d anonymous items into scope=%s", moved, destination)
	utils.RespondJSON(w, http.StatusOK, map[string]int{"merged": moved})
}
