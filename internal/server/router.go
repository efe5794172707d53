package server

import (
	"net/http"

	"github.com/gilvint/headspace-agent/internal/api"
	"github.com/gilvint/headspace-agent/internal/api/handlers"
	"github.com/gilvint/headspace-agent/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AgentHandler *handlers.AgentHandler
	EmbedHandler *handlers.EmbedHandler
	SyncHandler  *handlers.SyncHandler
	EmbedSecret  string
	JWTSecret    string
	OwnerEmail   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.ResolveIdentity(cfg.JWTSecret, cfg.OwnerEmail))
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/agent", cfg.AgentHandler.Ask)
	r.Get("/agent/history", cfg.AgentHandler.History)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireEmbedSecret(cfg.EmbedSecret))

		r.Post("/embed", cfg.EmbedHandler.Run)
		r.Post("/sync", cfg.SyncHandler.Sync)
		r.Delete("/sync", cfg.SyncHandler.Delete)
	})

	return r
}
