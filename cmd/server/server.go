package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// startHTTPServer serves router until ctx is cancelled or the listener fails,
// then shuts down gracefully within the configured timeout.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(app.config.Server.Port)))
	if err != nil {
		app.cleanup()
		return fmt.Errorf("failed to listen: %w", err)
	}
	return app.serve(ctx, ln, router)
}

// serve runs the server on an existing listener.
func (app *application) serve(ctx context.Context, ln net.Listener, router http.Handler) error {
	defer app.cleanup()

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			app.logger.Error("server failed", slog.String("error", err.Error()))
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	}

	timeout := app.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("server shutdown completed")
	return nil
}
