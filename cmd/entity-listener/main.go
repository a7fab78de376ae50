package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/upb/entitybus/app"
	"github.com/upb/entitybus/config"
	"github.com/upb/entitybus/internal/observability"
	"github.com/upb/entitybus/routes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "entity-listener: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}

	var gatherer prometheus.Gatherer
	if cfg.Observability.MetricsEnabled {
		gatherer = deps.Registry
	}
	srv := &http.Server{
		Addr:              cfg.Observability.HTTPAddr,
		Handler:           routes.SetupRoutes(routes.Options{Health: deps.HealthHandler, Gatherer: gatherer}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("operational endpoints listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return deps.Consumer.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown failed", zap.Error(err))
		}
		return deps.Close(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("entity-listener stopped with error", zap.Error(err))
		return err
	}
	return nil
}
