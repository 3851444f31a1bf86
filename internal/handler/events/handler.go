package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
	"github.com/lunarhue/promptii/backend/internal/service/refine"
)

// Handler serves conversation snapshots over a WebSocket: one on connect and
// one per client refresh request. A socket follows exactly one conversation,
// matching the one-live-conversation interaction model.
type Handler struct {
	refineSvc *refine.Service
	upgrader  websocket.Upgrader
}

// New creates the events handler.
func New(refineSvc *refine.Service) *Handler {
	return &Handler{
		refineSvc: refineSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{conversationID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage struct {
	Type         string                     `json:"type"`
	Conversation *conversation.Conversation `json:"conversation,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[events] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	if !h.sendSnapshot(ctx, conn, conversationID) {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[events] websocket read failed: %v", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(conn, "invalid message")
			continue
		}

		switch msg.Type {
		case "refresh":
			if !h.sendSnapshot(ctx, conn, conversationID) {
				return
			}
		case "ping":
			_ = conn.WriteJSON(outboundMessage{Type: "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

func (h *Handler) sendSnapshot(ctx context.Context, conn *websocket.Conn, conversationID string) bool {
	conv, err := h.refineSvc.Get(ctx, conversationID)
	if err != nil {
		h.sendError(conn, "conversation not found")
		return false
	}
	if err := conn.WriteJSON(outboundMessage{Type: "snapshot", Conversation: &conv}); err != nil {
		log.Printf("[events] websocket write failed: %v", err)
		return false
	}
	return true
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	if err := conn.WriteJSON(outboundMessage{Type: "error", Error: message}); err != nil {
		log.Printf("[events] websocket write failed: %v", err)
	}
}
