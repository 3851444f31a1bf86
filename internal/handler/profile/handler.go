package profile

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lunarhue/promptii/backend/internal/identity"
	"github.com/lunarhue/promptii/backend/internal/middleware"
	"github.com/lunarhue/promptii/backend/pkg/utils"
)

// Handler echoes the caller's identity facts and resolved tier, and accepts
// the client-asserted payment acknowledgement.
type Handler struct{}

// New creates the profile handler.
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes registers the profile routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGet)
	r.Post("/profile/upgrade-ack", h.handleUpgradeAck)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"isAuthenticated": claims.IsAuthenticated,
		"subjectId":       claims.SubjectID,
		"tier":            identity.ResolveTier(claims),
	})
}

// handleUpgradeAck records that the caller claims to have paid. The
// acknowledgement carries no trust: the tier keeps coming from the identity
// provider's entitlement claim and will flip only once that claim refreshes.
func (h *Handler) handleUpgradeAck(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	log.Printf("[profile] upgrade acknowledged by subject=%q (unverified)", claims.SubjectID)
	utils.RespondJSON(w, http.StatusAccepted, map[string]string{
		"status": "acknowledged",
		"note":   "pro features unlock when the entitlement claim refreshes",
	})
}
