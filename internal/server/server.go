// Package server runs the storefront until SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/naturelovers/storefront/config"
	"github.com/naturelovers/storefront/internal/kernel"
	"github.com/naturelovers/storefront/pkg/grpc"
	"github.com/naturelovers/storefront/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Options select what Start runs next to the HTTP listener.
type Options struct {
	// Workers is the number of queue workers; below 1 uses QUEUE_WORKERS.
	Workers int
	// NoGRPC skips the gRPC health listener.
	NoGRPC bool
}

// Start boots the App and serves HTTP, gRPC health and the background
// runners. It returns after a graceful shutdown.
func Start(opts Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := kernel.Boot(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Error("server: close", "error", err)
		}
	}()
	return Run(ctx, app, ":"+config.AppPort(), opts)
}

// Run serves app on addr until ctx ends.
func Run(ctx context.Context, app *kernel.App, addr string, opts Options) error {
	workers := opts.Workers
	if workers < 1 {
		workers = config.QueueWorkers()
	}

	bgCtx, cancelBg := context.WithCancel(ctx)
	var bg sync.WaitGroup
	bg.Add(1)
	go func() { defer bg.Done(); app.Background(bgCtx, workers) }()
	defer func() {
		cancelBg()
		bg.Wait()
	}()

	if !opts.NoGRPC {
		g, err := grpc.Start(config.GRPCPort(), app.Ready)
		if err != nil {
			return err
		}
		defer g.Stop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server: stopped")
	return nil
}
