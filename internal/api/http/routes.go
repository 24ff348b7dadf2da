package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with configured routes, middleware, and handlers.
// It sets up the /api/v1 routes, health check, and Prometheus metrics endpoint.
func NewRouter(taskHandler *TaskHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/download", taskHandler.Submit)
		r.Get("/download/{taskID}", taskHandler.Download)
		r.Get("/status/{taskID}", taskHandler.GetStatus)
		r.Get("/cleanup", taskHandler.Cleanup)
		r.Post("/cleanup", taskHandler.Cleanup)
		r.Get("/cleanup/stats", taskHandler.CleanupStats)
		r.Get("/health", taskHandler.Health)
	})

	r.Get("/health", taskHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	return r
}
