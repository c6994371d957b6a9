package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/tradeboard/internal/adapters/http/api"
	"github.com/okian/tradeboard/internal/adapters/repository"
	service "github.com/okian/tradeboard/internal/app"
	"github.com/okian/tradeboard/internal/config"
	"github.com/okian/tradeboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

type serveFlags struct {
	addr  string
	input string
	top   int
}

func newServeCommand(root *rootOptions) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Compute the leaderboard once and serve it over HTTP",
		Long: `Runs the pipeline once, then serves the ranked batch read-only.

Endpoints:
  GET /leaderboard?limit=N  - first N ranked accounts
  GET /rank/{account_id}    - one ranked account
  GET /stats                - batch statistics
  GET /healthz              - Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := root.setup(ctx)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			override(flags, "addr", &cfg.Addr, f.addr)
			override(flags, "input", &cfg.Input, f.input)
			override(flags, "top", &cfg.TopN, f.top)
			if err := validate(cfg); err != nil {
				return err
			}

			store := repository.NewSnapshotStore(repository.WithMaxLimit(cfg.MaxLeaderboardLimit))
			svc, err := service.NewFromConfig(cfg,
				service.WithLogger(log.Named("pipeline")),
				service.WithStore(store),
			)
			if err != nil {
				return err
			}
			if _, err := svc.Publish(ctx, cfg.Input, cfg.TopN); err != nil {
				return err
			}

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("%w: %w", api.ErrServe, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving leaderboard on %s\n", ln.Addr())
			return serve(ctx, log, ln, newHandler(store, cfg.MaxLeaderboardLimit))
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().StringVar(&f.input, "input", config.DefaultInput, "input CSV path or s3:// location")
	cmd.Flags().IntVar(&f.top, "top", config.DefaultTopN, "leaderboard rows counted as selected in /stats")
	return cmd
}

func newHandler(store *repository.SnapshotStore, maxLimit int) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(store, maxLimit).Register(mux)
	return mux
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, log logger.Logger, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return <-errCh
}
