package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the service router. Static paths are registered
// before the shortname catch-all, so chi resolves them first.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Shortener APIs
	r.Get("/", h.Homepage)
	r.Post("/api/url", h.CreateMapping)

	// Observability APIs
	r.Get("/status", h.GetStatus)
	r.Get("/metrics", h.GetMetrics)
	r.Get("/health", h.GetHealth)

	// Admin APIs
	r.Get("/admin/keys", h.ListKeys)
	r.Get("/admin/logs", h.RecentLogs)

	// Static assets
	if h.staticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(h.staticDir)))
		r.Handle("/static/*", fs)
	}

	// Shortname redirect (catch-all)
	r.Get("/{shortname}", h.Redirect)

	return r
}
