package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/grant-aggregator/internal/delivery/http/handler"
	"github.com/user/grant-aggregator/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/api/health", h.HandleHealthCheck)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/grants", h.HandleListGrants)
		r.Post("/grants/sync", h.HandleTriggerSync)
		r.Get("/grants/{id}", h.HandleGetGrant)
		r.Get("/sync/status/{id}", h.HandleGetSyncStatus)
	})

	return r
}
