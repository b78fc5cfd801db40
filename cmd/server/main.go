package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/searchgame/internal/api"
	"github.com/mcoot/searchgame/internal/api/handler"
	"github.com/mcoot/searchgame/internal/config"
	"github.com/mcoot/searchgame/internal/factory"
	"github.com/mcoot/searchgame/internal/services/auth"
	"github.com/mcoot/searchgame/internal/services/leaderboard"
	"github.com/mcoot/searchgame/internal/services/session"
	redisstorage "github.com/mcoot/searchgame/internal/storage/redis"
	sqlstorage "github.com/mcoot/searchgame/internal/storage/sql"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "searchgame-server",
		Short:        "Run the search game API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Replace all icon sets with the built-in catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(configFile)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), cfg, logger)
		},
	})

	return rootCmd
}

// setup loads configuration and installs the JSON logger
func setup(configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is not set; using the insecure fallback secret")
	}
	return cfg, logger, nil
}

// factoryConfig maps loaded configuration onto the application factory
func factoryConfig(cfg *config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:      logger,
		StorageType: cfg.Database.Driver,
		AuthConfig: auth.Config{
			Secret:   cfg.Auth.JWTSecret,
			TokenTTL: cfg.Auth.TokenTTL,
		},
		SessionConfig: session.Config{
			MaxCompletedAttempts: cfg.Game.MaxAttempts,
		},
		LeaderboardConfig: leaderboard.Config{
			Size:           cfg.Game.LeaderboardSize,
			TotalGamesBias: cfg.Game.TotalGamesBias,
		},
	}

	if cfg.Database.Driver != config.DriverMemory {
		sqlCfg := sqlstorage.DefaultConfig()
		sqlCfg.DSN = cfg.Database.DSN
		if cfg.Database.MaxOpenConns > 0 {
			sqlCfg.MaxOpenConns = cfg.Database.MaxOpenConns
		}
		if cfg.Database.MaxIdleConns > 0 {
			sqlCfg.MaxIdleConns = cfg.Database.MaxIdleConns
		}
		if cfg.Database.ConnMaxLifetime > 0 {
			sqlCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
		}
		fc.SQLConfig = &sqlCfg
	}

	if cfg.Redis.URL != "" {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		if cfg.Redis.LeaderboardTTL > 0 {
			redisCfg.LeaderboardTTL = cfg.Redis.LeaderboardTTL
		}
		fc.RedisConfig = &redisCfg
	}

	return fc
}

// healthChecks collects the backing stores that can be pinged
func healthChecks(app *factory.App) map[string]handler.Pinger {
	checks := make(map[string]handler.Pinger)
	if p, ok := app.Storage.(handler.Pinger); ok {
		checks["database"] = p
	}
	if p, ok := app.Cache.(handler.Pinger); ok {
		checks["redis"] = p
	}
	return checks
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create application factory
	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}()

	if cfg.Game.SeedIconSets {
		seeded, err := app.IconSetService.SeedIfEmpty(ctx)
		if err != nil {
			logger.Error("failed to seed icon sets", slog.String("error", err.Error()))
			return err
		}
		if !seeded {
			logger.Debug("icon sets already present")
		}
	}

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:             logger,
		AuthService:        app.AuthService,
		SessionService:     app.SessionService,
		LeaderboardService: app.LeaderboardService,
		IconSetService:     app.IconSetService,
		Random:             app.Random,
		AllowedOrigins:     cfg.CORS.AllowedOrigins,
		HealthChecks:       healthChecks(app),
	})

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	if cfg.Server.ReadTimeout > 0 {
		serverConfig.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		serverConfig.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout > 0 {
		serverConfig.IdleTimeout = cfg.Server.IdleTimeout
	}
	server := api.NewServer(router, serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Database.Driver),
		slog.Bool("leaderboard_cache", cfg.Redis.URL != ""),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		// The signal context is already cancelled; shut down on a fresh one
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func seed(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("seeding the memory store has no lasting effect; configure sqlite or postgres")
	}

	app, err := factory.New(ctx, factoryConfig(cfg, logger))
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	return app.IconSetService.SeedDefaults(ctx)
}
