package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	conversationHandler "github.com/lunarhue/promptii/backend/internal/handler/conversation"
	"github.com/lunarhue/promptii/backend/internal/handler/events"
	historyHandler "github.com/lunarhue/promptii/backend/internal/handler/history"
	"github.com/lunarhue/promptii/backend/internal/handler/profile"
	shareHandler "github.com/lunarhue/promptii/backend/internal/handler/share"
	"github.com/lunarhue/promptii/backend/internal/handler/stream"
	middlewarePkg "github.com/lunarhue/promptii/backend/internal/middleware"
	historyservice "github.com/lunarhue/promptii/backend/internal/service/history"
	"github.com/lunarhue/promptii/backend/internal/service/refine"
	shareservice "github.com/lunarhue/promptii/backend/internal/service/share"
)

// Deps collects everything the router needs.
type Deps struct {
	Refine       *refine.Service
	History      historyservice.Store
	Share        shareservice.Gateway
	ShareBaseURL string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	r.Use(middlewarePkg.Identity)

	r.Route("/api", func(api chi.Router) {
		conversationHandler.New(deps.Refine).RegisterRoutes(api)
		historyHandler.New(deps.History, deps.Refine).RegisterRoutes(api)
		shareHandler.New(deps.Share, deps.ShareBaseURL).RegisterRoutes(api)
		profile.New().RegisterRoutes(api)
		stream.New(deps.Refine).RegisterRoutes(api)
		events.New(deps.Refine).RegisterRoutes(api)
	})

	return r
}
