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

	"github.com/medicapp/backend/internal/application/services"
	"github.com/medicapp/backend/internal/infrastructure/clients/postgres"
	"github.com/medicapp/backend/internal/infrastructure/observability"
	"github.com/medicapp/backend/pkg/config"
	"github.com/medicapp/backend/pkg/secrets"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medicapp-api",
		Short:         "MedicApp healthcare directory and chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		observability.GetLogger().Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	vault, err := secrets.Apply(context.Background(), secrets.ConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)
	if vault.Enabled {
		observability.GetLogger().Info().Str("path", vault.Path).Int("loaded", vault.Loaded).Int("skipped", vault.Skipped).Msg("secrets loaded from vault")
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			pgClient, err := postgres.NewClient(&cfg.Database)
			if err != nil {
				return err
			}
			defer pgClient.Close()

			applied, err := postgres.NewMigrator(pgClient).Up(cmd.Context())
			if err != nil {
				return err
			}
			observability.GetLogger().Info().Int("applied", applied).Msg("migrations complete")
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired chat sessions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := observability.GetLogger()
			if cfg.Chat.SessionStore == config.SessionStoreMemory {
				logger.Warn().Msg("in-memory sessions live inside the server process; nothing to sweep")
				return nil
			}

			a, err := newApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.chat.SweepExpired(cmd.Context(), services.SweepTriggerManual)
			if err != nil {
				return err
			}
			logger.Info().Int("removed", removed).Msg("session sweep complete")
			return nil
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the provider search index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Typesense.Enabled {
				return errors.New("reindex requires TYPESENSE_ENABLED=true")
			}

			a, err := newApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			indexed, err := a.providers.Reindex(cmd.Context())
			if err != nil {
				return err
			}
			observability.GetLogger().Info().Int("indexed", indexed).Msg("provider reindex complete")
			return nil
		},
	}
}

func runServer(parent context.Context, cfg *config.Config) error {
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	a, err := newApp(ctx, cfg, appOptions{metrics: metrics, migrate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	go a.watchProviderEvents(ctx)

	// The background sweep period equals the session timeout
	stopSweeper := services.NewSessionSweeper(a.chat, cfg.Chat.SessionTimeout).Start(ctx)
	defer stopSweeper()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.router().SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
	return nil
}
