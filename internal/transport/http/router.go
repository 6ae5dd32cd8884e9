package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"datapipe/internal/config"
)

// NewRouter assembles the HTTP surface: run endpoints under /api, health
// under /healthz, and the Prometheus scrape endpoint under /metrics when
// metrics are enabled.
func NewRouter(cfg config.ServerConfig, pipeline *PipelineHandler, health *HealthHandler, metrics http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(render.SetContentType(render.ContentTypeJSON))
	if cfg.RateLimit.Enabled {
		r.Use(RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	r.Get("/healthz", health.Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(api chi.Router) {
		pipeline.Routes(api)
	})

	return r
}
