// Package api serves the keep-alive, health and metrics endpoints.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/frefireemail2-dot/Nezuko-welcome-bot/internal/api/middleware"
)

// KeepAliveText is the body of GET /, polled by the uptime monitor.
const KeepAliveText = "Dattebayo! Role Picker System Online! 🛡️"

// Options configures the router.
type Options struct {
	// Checks are probed by GET /health, keyed by name.
	Checks map[string]Pinger
	// Metrics exposes GET /metrics.
	Metrics bool
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.ValidateRequest)

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Monitors poll from anywhere
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &healthHandler{checks: opts.Checks}

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/", keepAlive)
	r.Head("/", keepAlive)
	r.Get("/health", h.ServeHTTP)

	return r
}

func keepAlive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(KeepAliveText))
	}
}
