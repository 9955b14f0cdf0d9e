package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"popmetrics/internal/api"
	"popmetrics/internal/scheduler"
	"popmetrics/internal/session"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// The API is live before the first query finishes; requests arriving
	// meanwhile join the in-flight fetch.
	h := api.NewHandler(a.cache, a.query, session.NewStore(), logger.Named("api"))
	e := api.NewServer(h, logger.Named("http"))

	go func() {
		logger.Info("warming indicators cache")
		t0 := time.Now()
		if _, err := a.cache.Get(ctx, a.query); err != nil {
			logger.Warn("cache warm-up failed", zap.Error(err))
			return
		}
		logger.Info("cache warm", zap.Duration("took", time.Since(t0)))
	}()

	if cfg.Refresh.Enabled {
		sched, err := scheduler.New(a.cache, a.query, cfg.Refresh.Schedule, logger.Named("refresh"))
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		errCh <- e.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
