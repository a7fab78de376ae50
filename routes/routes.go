package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/entitybus/handlers"
	"github.com/upb/entitybus/utils"
)

// Options selects what the operational HTTP surface exposes
type Options struct {
	Health *handlers.HealthHandler
	// Gatherer serves /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
}

// SetupRoutes configures the health and metrics endpoints
func SetupRoutes(opts Options) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check endpoints
	r.Get("/health", opts.Health.HandleHealth)
	r.Get("/health/ready", opts.Health.HandleReadiness)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
