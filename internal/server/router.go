package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/challenge-tracker/internal/metrics"
)

// NewRouter mounts the submission, challenge admin, health and metrics routes.
// m may be nil, in which case handlers are not instrumented and /metrics is absent.
func NewRouter(h *Handler, m *metrics.Metrics, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	inst := func(name string, fn http.HandlerFunc) http.Handler {
		if m == nil {
			return fn
		}
		return m.InstrumentHandler(name, fn)
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.healthz)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Method(http.MethodPost, "/submissions", inst("submissions", h.submit))
		r.Route("/challenges/{channel}", func(r chi.Router) {
			r.Method(http.MethodPost, "/start", inst("challenge_start", h.startChallenge))
			r.Method(http.MethodPost, "/stop", inst("challenge_stop", h.stopChallenge))
			r.Method(http.MethodGet, "/status", inst("challenge_status", h.challengeStatus))
			r.Method(http.MethodGet, "/leaderboard", inst("leaderboard", h.leaderboard))
			r.Method(http.MethodGet, "/recent", inst("recent", h.recent))
			r.Method(http.MethodGet, "/export", inst("export", h.export))
		})
		r.Method(http.MethodPost, "/results/{id}/invalidate", inst("invalidate", h.invalidate))
	})
	return r
}
