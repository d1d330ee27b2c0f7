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

	"github.com/spf13/cobra"

	"github.com/storefront-ai/shop-assist/internal/api"
)

// newServeCmd creates the serve subcommand.
func newServeCmd() *cobra.Command {
	var skipIngest bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Serve starts the question-answering API. On startup the FAQ and routing
collections are bootstrapped into the semantic index if missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer application.close()

			if !skipIngest {
				bootCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				err := application.ensureCollections(bootCtx)
				cancel()
				if err != nil {
					return fmt.Errorf("bootstrap collections: %w", err)
				}
			}

			handler := api.NewRouter(logger, application.service, application.sessions, api.RouterConfig{
				RequestTimeout: cfg.Server.WriteTimeout,
			})

			addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
			server := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", addr).Msg("starting API server")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case sig := <-stop:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}

			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipIngest, "skip-ingest", false, "skip FAQ bootstrap on startup")

	return cmd
}
