package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	agentHandler "github.com/zhouzirui/studyai/backend/internal/handler/agent"
	"github.com/zhouzirui/studyai/backend/internal/handler/meta"
	"github.com/zhouzirui/studyai/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/studyai/backend/internal/middleware"
	"github.com/zhouzirui/studyai/backend/internal/model/agent"
	"github.com/zhouzirui/studyai/backend/internal/service/relay"
	sessionService "github.com/zhouzirui/studyai/backend/internal/service/session"
)

// RouterDeps carries the services the HTTP surface is built on.
type RouterDeps struct {
	Agents         agent.Store
	Sessions       *sessionService.Manager
	Relay          *relay.Relay // nil when no study backend is configured
	DefaultAgent   string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	meta.New(deps.DefaultAgent).RegisterRoutes(r)

	wsHandler := ws.New(deps.Sessions, deps.Relay, deps.Agents, deps.DefaultAgent, deps.AllowedOrigins, deps.Logger)
	wsHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		agentHandler.New(deps.Agents).RegisterRoutes(api)
	})

	return r
}
