package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sipwell/agent/internal/api/handlers"
	mw "github.com/sipwell/agent/internal/api/middleware"
	"github.com/sipwell/agent/internal/buildconfig"
	"github.com/sipwell/agent/internal/config"
	"github.com/sipwell/agent/internal/domain"
	"github.com/sipwell/agent/internal/service"
	"go.uber.org/zap"
)

// App holds the HTTP control surface. Reminder delivery itself goes
// out through the channels; this surface is where settings, activity
// signals, and user responses come in.
type App struct {
	Router *chi.Mux

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64

	mu          sync.RWMutex
	bootResults []domain.ServiceBootstrapResult
}

func NewApp(scheduler *service.Scheduler, settingsStore domain.SettingsStore,
	activityStore domain.ActivityStore, reminderStore domain.ReminderStore,
	db *pgxpool.Pool, logger *zap.Logger) *App {

	reminderHandler := handlers.NewReminderHandler(scheduler, reminderStore)
	settingsHandler := handlers.NewSettingsHandler(settingsStore)
	activityHandler := handlers.NewActivityHandler(activityStore)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.countRequests)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", app.healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", reminderHandler.List)
			r.Get("/current", reminderHandler.Current)
			r.Post("/{id}/response", reminderHandler.Respond)
		})

		r.Get("/settings", settingsHandler.Get)
		r.Put("/settings", settingsHandler.Update)

		r.Post("/activity", activityHandler.Ingest)
	})

	return app
}

// SetBootstrapResults records the last startup sequence for /health.
func (app *App) SetBootstrapResults(results []domain.ServiceBootstrapResult) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.bootResults = results
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (app *App) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.requestCount.Add(1)
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		if sr.status >= 400 {
			app.errorCount.Add(1)
		}
	})
}

func (app *App) healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		var dbErr string
		if err := db.Ping(r.Context()); err != nil {
			status = "degraded"
			dbErr = err.Error()
		}

		app.mu.RLock()
		boot := app.bootResults
		app.mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    status,
			"database":  dbErr,
			"bootstrap": boot,
			"version":   buildconfig.Version(),
		})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds":  uptime.Seconds(),
			"request_count":   app.requestCount.Load(),
			"error_count":     app.errorCount.Load(),
			"goroutines":      runtime.NumGoroutine(),
			"memory_alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
			"go_version":      runtime.Version(),
			"build":           buildconfig.VersionInfo(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
