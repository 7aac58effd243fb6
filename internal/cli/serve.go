package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"receipts-api/internal/router"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.serve(cmd.Context())
		},
	}
}

// serve blocks until ctx is done or the listener fails, then drains in-flight
// requests for up to shutdownTimeout.
func (rt *app) serve(ctx context.Context) error {
	rt.logger.Info().Msg("Application starting")

	database, err := rt.openStorage(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	listener, err := net.Listen("tcp", ":"+rt.cfg.Port)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           router.SetupRouter(database, rt.cfg, rt.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info().Str("addr", listener.Addr().String()).Msg("Server listening")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			rt.logger.Error().Err(err).Msg("Server error")
			return err
		}
		return nil
	case <-ctx.Done():
		rt.logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		rt.logger.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}

	rt.logger.Info().Msg("Server stopped")
	return nil
}
