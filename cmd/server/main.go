package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/verity-mem/verity/internal/api"
	"github.com/verity-mem/verity/internal/config"
	"github.com/verity-mem/verity/internal/store"
	"github.com/verity-mem/verity/internal/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	gateCfg, err := config.LoadGateConfig(config.GateConfigPath())
	if err != nil {
		logger.Fatal("failed to load gate config", zap.Error(err))
	}

	ctx := context.Background()

	// DATABASE_URL selects Postgres; otherwise the embedded SQLite
	// store carries the full storage surface.
	var stores api.Stores
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		stores = api.Stores{
			Facts:    store.NewFactStore(pool),
			Ledger:   store.NewLedgerStore(pool),
			Models:   store.NewModelStore(pool),
			Feedback: store.NewFeedbackStore(pool),
			Ping:     pool.Ping,
		}
	} else {
		path := config.SQLitePath()
		db, err := sqlite.Open(path)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		defer db.Close()
		logger.Info("using embedded sqlite store", zap.String("path", path))

		stores = api.Stores{
			Facts:    db,
			Ledger:   db.Ledger(),
			Models:   db,
			Feedback: db.Feedback(),
		}
	}

	app, err := api.NewApp(stores, gateCfg, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	// Start background services
	app.Retrainer.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	// Stop background services
	app.Retrainer.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
