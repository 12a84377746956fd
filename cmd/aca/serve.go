package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/warp/aca-engine/api"
	"github.com/warp/aca-engine/metrics"
	"github.com/warp/aca-engine/store/sqlite"
)

// serveCmd starts the HTTP API.
//
// STARTUP SEQUENCE:
//  1. Load tax-year tables (built-in, files, stored)
//  2. Initialize SQLite store
//  3. Create API handler with dependencies
//  4. Configure HTTP router
//  5. Start server with graceful shutdown
//
// GRACEFUL SHUTDOWN:
//
//	On SIGINT/SIGTERM the server stops accepting connections, waits up to
//	30s for active requests, then closes the database.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	cmd.Flags().Int("port", 8080, "HTTP server port")
	cmd.Flags().String("db", "aca.db", `SQLite database path (":memory:" for in-memory)`)
	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	return cmd
}

func serve(ctx context.Context) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	store, err := sqlite.New(viper.GetString("database.path"))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, registry, api.Config{
		DefaultTaxYear: viper.GetInt("engine.tax_year"),
		Workers:        viper.GetInt("engine.workers"),
		ChunkSize:      viper.GetInt("engine.chunk_size"),
		Logger:         log.Logger,
		Metrics:        metrics.New(),
	})
	if err := handler.LoadTaxYears(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to load stored tax years")
	}

	port := viper.GetInt("server.port")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Str("db", viper.GetString("database.path")).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}
