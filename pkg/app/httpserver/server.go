// Package httpserver runs an http.Server for the lifetime of a context.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultShutdownTimeout = 30 * time.Second

// Serve serves srv on ln until ctx is canceled or the server fails, then
// shuts it down within shutdownTimeout. A nil ln listens on srv.Addr.
//
// The error is non-nil when the server stopped on its own or shutdown
// did not complete in time.
func Serve(ctx context.Context, logger *zap.Logger, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	if srv == nil {
		return errors.New("nil http server")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", srv.Addr); err != nil {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
	}

	served := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			served <- err
			return
		}
		served <- nil
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case serveErr = <-served:
		logger.Error("HTTP server stopped unexpectedly", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP server", zap.Duration("timeout", shutdownTimeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server failed: %w", serveErr)
	}

	logger.Info("HTTP server stopped")
	return nil
}
