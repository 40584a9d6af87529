package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/verity-mem/verity/internal/api/handlers"
	mw "github.com/verity-mem/verity/internal/api/middleware"
	"github.com/verity-mem/verity/internal/config"
	"github.com/verity-mem/verity/internal/domain"
	"github.com/verity-mem/verity/internal/service"
	"github.com/verity-mem/verity/internal/store"
	"go.uber.org/zap"
)

// Compile-time checks that the pgx stores satisfy the domain contracts.
var (
	_ domain.FactStore     = (*store.FactStore)(nil)
	_ domain.LedgerStore   = (*store.LedgerStore)(nil)
	_ domain.ModelStore    = (*store.ModelStore)(nil)
	_ domain.FeedbackStore = (*store.FeedbackStore)(nil)
)

// Stores bundles the storage backend handed to NewApp; either the pgx
// implementations or the embedded SQLite views satisfy it.
type Stores struct {
	Facts    domain.FactStore
	Ledger   domain.LedgerStore
	Models   domain.ModelStore
	Feedback domain.FeedbackStore

	// Ping reports backend liveness for /health.
	Ping func(ctx context.Context) error
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Retrainer *service.Retrainer

	startTime time.Time
	metrics   mw.Metrics
}

func NewApp(stores Stores, gateCfg *domain.GateConfig, logger *zap.Logger) (*App, error) {
	// Services
	calibrator := service.NewCalibrator(stores.Models, logger)
	if err := calibrator.Load(context.Background()); err != nil {
		return nil, err
	}
	policy := service.NewYellowZonePolicy(config.ConfirmationChannel())
	factSvc := service.NewFactService(stores.Facts, stores.Ledger, calibrator, policy, logger)
	resolutionSvc := service.NewResolutionService(stores.Facts, stores.Ledger, logger)
	factSvc.SetResolver(resolutionSvc)
	gateSvc := service.NewGateService(gateCfg, stores.Ledger, logger)
	retrainer := service.NewRetrainer(stores.Feedback, calibrator, logger)

	// Handlers
	statementHandler := handlers.NewStatementHandler(factSvc)
	factHandler := handlers.NewFactHandler(factSvc)
	ledgerHandler := handlers.NewLedgerHandler(resolutionSvc)
	gateHandler := handlers.NewGateHandler(gateSvc)
	calibrationHandler := handlers.NewCalibrationHandler(retrainer, calibrator)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Retrainer: retrainer,
		startTime: time.Now(),
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.metrics.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(stores.Ping))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/statements", statementHandler.Record)
		r.Get("/answer", statementHandler.Answer)

		r.Route("/facts", func(r chi.Router) {
			r.Get("/", factHandler.ListCurrent)
			r.Get("/{slot}", factHandler.GetBySlot)
			r.Get("/{slot}/history", factHandler.History)
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", ledgerHandler.List)
			r.Get("/{id}", ledgerHandler.Get)
			r.Post("/{id}/resolve", ledgerHandler.Resolve)
		})

		r.Post("/gate/check", gateHandler.Check)

		r.Route("/calibration", func(r chi.Router) {
			r.Post("/feedback", calibrationHandler.Feedback)
			r.Get("/model", calibrationHandler.Model)
		})
	})

	return app, nil
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"error"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"uptime_seconds":          uptime.Seconds(),
			"uptime_human":            uptime.Round(time.Second).String(),
			"request_count":           app.metrics.Requests.Load(),
			"error_count":             app.metrics.Errors.Load(),
			"statements_recorded":     app.metrics.Statements.Load(),
			"contradictions_resolved": app.metrics.Resolutions.Load(),
			"gate_checks":             app.metrics.GateChecks.Load(),
			"avg_latency_ms":          float64(app.metrics.AvgLatency().Microseconds()) / 1000,
			"goroutines":              runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
		})
	}
}
