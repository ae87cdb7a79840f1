package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nscrdesigns/houdini-mcp/pkg/log"
)

// Serve exposes m on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics, logger log.Logger) error {
	logger = log.OrNoop(logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", log.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", log.Err(err))
			return err
		}
		return nil
	}
}
