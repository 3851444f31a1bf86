package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
	"github.com/lunarhue/promptii/backend/internal/service/refine"
	"github.com/lunarhue/promptii/backend/pkg/utils"
)

// Handler streams conversation status over Server-Sent Events while a
// generation call is outstanding. It carries state transitions only, never
// generation content: completion calls stay atomic.
type Handler struct {
	refineSvc *refine.Service
	interval  time.Duration
}

// New creates the stream handler.
func New(refineSvc *refine.Service) *Handler {
	return &Handler{refineSvc: refineSvc, interval: 2 * time.Second}
}

// RegisterRoutes registers the SSE route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{conversationID}", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	conversationID := chi.URLParam(r, "conversationID")
	ctx := r.Context()

	conv, err := h.refineSvc.Get(ctx, conversationID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	utils.SetupSSEHeaders(w)
	log.Printf("[sse] opening status stream for conversation=%s", conversationID)

	lastState := conv.State
	utils.SendSSEEvent(w, flusher, "state", statePayload(conv))

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing status stream for conversation=%s", conversationID)
			return
		case <-ticker.C:
			conv, err := h.refineSvc.Get(ctx, conversationID)
			if err != nil {
				utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": "conversation not found"})
				return
			}
			if conv.State != lastState {
				lastState = conv.State
				utils.SendSSEEvent(w, flusher, "state", statePayload(conv))
			} else {
				utils.SendSSEChunk(w, flusher, map[string]string{"event": "heartbeat"})
			}
			if conv.State == conversation.StateComplete {
				utils.SendSSEEvent(w, flusher, "end", statePayload(conv))
				return
			}
		}
	}
}

func statePayload(conv conversation.Conversation) map[string]any {
	return map[string]any{
		"conversationId": conv.ID,
		"state":          conv.State,
		"messages":       len(conv.Messages),
	}
}
