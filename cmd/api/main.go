package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reppyroute/internal/app"
	"reppyroute/internal/config"
	"reppyroute/internal/database"
	"reppyroute/internal/idempotency"
	"reppyroute/internal/pkg/logger"
	"reppyroute/internal/pkg/tracing"
	"reppyroute/internal/realtime"
	"reppyroute/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.AppEnv, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "reppyroute-api", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var guard idempotency.Guard
	if cfg.RedisURL != "" {
		rg, err := idempotency.NewRedisGuardFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rg.Close()
		guard = rg
		log.Info("idempotency keys in redis")
	} else {
		guard = idempotency.NewDBGuard(db)
	}

	a := app.New(app.Deps{
		Config: cfg,
		DB:     db,
		Store:  storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLBase),
		Hub:    realtime.NewHub(log),
		Guard:  guard,
		Logger: log,
	})

	cleanupDone := a.Cleanup.Schedule(ctx, cfg.CleanupInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			stop()
			<-cleanupDone
			return err
		}
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(sctx)
	<-cleanupDone
	return err
}
