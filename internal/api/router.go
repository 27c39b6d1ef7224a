package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apiMiddleware "github.com/phrazzld/clipscribe/internal/api/middleware"
	"github.com/phrazzld/clipscribe/internal/api/shared"
	"github.com/phrazzld/clipscribe/internal/platform/logger"
	"github.com/phrazzld/clipscribe/internal/redact"
	"github.com/phrazzld/clipscribe/internal/service/auth"
	"github.com/phrazzld/clipscribe/internal/store"
)

// healthCheckTimeout bounds each component check made by GET /health.
const healthCheckTimeout = 3 * time.Second

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterDeps are the collaborators the HTTP API is built from. Tokens may be
// nil to serve the API without authentication; Audio may be nil to disable
// uploads.
type RouterDeps struct {
	Queue   JobQueue
	Limits  ConcurrencySetting
	History store.HistoryStore
	Events  EventLog
	Audio   AudioSaver
	Tokens  auth.TokenService
	// Checks are probed by GET /health, keyed by component name.
	Checks map[string]HealthChecker
	Logger *slog.Logger
}

// NewRouter creates the chi router serving the job API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apiMiddleware.Trace(deps.Logger))
	r.Use(chimw.Recoverer)

	jobHandler := NewJobHandler(deps.Queue)
	settingsHandler := NewSettingsHandler(deps.Limits)
	historyHandler := NewHistoryHandler(deps.History)
	eventsHandler := NewEventsHandler(deps.Events)

	r.Route("/api", func(r chi.Router) {
		if deps.Tokens != nil {
			r.Use(apiMiddleware.NewAuthMiddleware(deps.Tokens).Authenticate)
		}

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", jobHandler.Submit)
			r.Get("/", jobHandler.List)
			r.Post("/batch", jobHandler.SubmitBatch)
			r.Post("/clear", jobHandler.ClearFinished)
			r.Get("/{id}", jobHandler.Get)
			r.Delete("/{id}", jobHandler.Delete)
			r.Post("/{id}/retry", jobHandler.Retry)
		})
		r.Get("/queue", jobHandler.Queue)

		r.Get("/settings/concurrency", settingsHandler.GetConcurrency)
		r.Put("/settings/concurrency", settingsHandler.SetConcurrency)

		r.Get("/history", historyHandler.List)
		r.Get("/history/{id}", historyHandler.Get)
		r.Delete("/history/{id}", historyHandler.Delete)

		r.Get("/events", eventsHandler.Since)

		if deps.Audio != nil {
			r.Post("/audio", NewAudioHandler(deps.Audio).Upload)
		}
	})

	r.Get("/health", healthHandler(deps.Checks))

	return r
}

// healthHandler answers 200 when every check passes and 503 otherwise.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok"}
		status := http.StatusOK

		if len(checks) > 0 {
			resp.Components = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.Health(ctx)
			cancel()

			if err != nil {
				logger.FromContext(r.Context()).Warn("health check failed",
					"component", name,
					"error", redact.Error(err))
				resp.Components[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}

		shared.RespondWithJSON(w, r, status, resp)
	}
}
