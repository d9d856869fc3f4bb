package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/philly/ipcbus/internal/adapters/rest"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/metrics"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
)

// NewCoordinatorRouter mounts the satellite websocket endpoint and the
// operator surface (health probes, metrics, event injection).
func NewCoordinatorRouter(
	hub *wstransport.Hub,
	health *rest.HealthHandler,
	events *rest.EventsHandler,
	m *metrics.Metrics,
	log logger.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/health/live", health.GetLiveness)
	r.Get("/health/ready", health.GetReadiness)
	r.Post("/events/{type}", events.Broadcast)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Method(http.MethodGet, "/ws", hub)

	return withObservability(r, log)
}

// NewHTTPServer creates the coordinator's HTTP server. Read and write
// timeouts are left unset because /ws connections are long-lived.
func NewHTTPServer(config Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              config.CoordinatorAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// withObservability adds request logging
func withObservability(handler http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Use chi's response writer wrapper to capture status code and bytes written
		wrr := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		handler.ServeHTTP(wrr, r)

		log.Info(r.Context(), "HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrr.Status(),
			"bytes", wrr.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)
	})
}
