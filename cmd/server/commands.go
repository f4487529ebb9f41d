package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/phrazzld/pathwise/internal/config"
	"github.com/phrazzld/pathwise/internal/events"
	"github.com/phrazzld/pathwise/internal/platform/logger"
	"github.com/phrazzld/pathwise/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pathwise",
		Short:         "Learning progression engine",
		Long:          "pathwise tracks unlocks, hearts, streaks, XP and spaced repetition for a hierarchical curriculum.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to a config file (environment variables take precedence)")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

// loadConfig loads configuration from --config, if given, and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}
			log.Info("server configuration loaded",
				slog.Int("port", cfg.Server.Port),
				slog.String("log_level", cfg.Server.LogLevel),
				slog.Bool("redis_enabled", cfg.Cache.RedisAddr != ""))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := setupAppDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}

			var handlers []events.EventHandler
			if cfg.Cache.RedisAddr != "" {
				client, err := events.NewRedisClient(ctx, cfg.Cache)
				if err != nil {
					_ = db.Close()
					return err
				}
				publisher, err := events.NewRedisPublisher(client, cfg.Cache.Channel, log)
				if err != nil {
					_ = client.Close()
					_ = db.Close()
					return err
				}
				async := events.NewAsyncHandler(publisher, events.AsyncConfig{
					Workers:   cfg.Cache.PublishWorkers,
					QueueSize: cfg.Cache.PublishQueueSize,
				}, log)
				handlers = append(handlers, async)
				defer func() {
					closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
					defer cancel()
					if err := async.Close(closeCtx); err != nil {
						log.Warn("invalidation queue not drained", slog.String("error", err.Error()))
					}
					if err := client.Close(); err != nil {
						log.Warn("failed to close redis client", slog.String("error", err.Error()))
					}
				}()
			}

			app, err := newApplication(cfg, log, postgres.NewTransactor(db, log), handlers...)
			if err != nil {
				_ = db.Close()
				return err
			}
			app.closers = append(app.closers, db.Close)

			return app.startHTTPServer(ctx, app.setupRouter())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|reset|status|version>",
		Short:     "Apply or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logger.Setup(cfg.Server)
			if err != nil {
				return fmt.Errorf("failed to set up logger: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			db, err := setupAppDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(ctx, db, args[0], log)
		},
	}
}
