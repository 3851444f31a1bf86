package share

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	shareservice "github.com/lunarhue/promptii/backend/internal/service/share"
	"github.com/lunarhue/promptii/backend/pkg/utils"
)

// Handler publishes finished artifacts and resolves share ids. A nil gateway
// means sharing is not configured; both operations answer 503 with a message
// the client can show.
type Handler struct {
	gateway shareservice.Gateway
	baseURL string
}

// New creates the share handler.
func New(gateway shareservice.Gateway, baseURL string) *Handler {
	return &Handler{gateway: gateway, baseURL: strings.TrimRight(baseURL, "/")}
}

// RegisterRoutes registers the share routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/share", h.handlePublish)
	r.Get("/share/{shareID}", h.handleResolve)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "sharing is not configured")
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	id, err := h.gateway.Publish(r.Context(), payload.Text)
	if err != nil {
		log.Printf("[share] publish failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to publish prompt")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{
		"id":  id,
		"url": h.baseURL + "/" + id,
	})
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "sharing is not configured")
		return
	}

	text, err := h.gateway.Resolve(r.Context(), chi.URLParam(r, "shareID"))
	if err != nil {
		// An unknown id is an expected branch, not a failure.
		if errors.Is(err, shareservice.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "shared prompt not found")
			return
		}
		log.Printf("[share] resolve failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to resolve prompt")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": text})
}
