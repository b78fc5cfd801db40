package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/searchgame/internal/dependencies/clock"
	"github.com/mcoot/searchgame/internal/dependencies/random"
	"github.com/mcoot/searchgame/internal/services/auth"
	"github.com/mcoot/searchgame/internal/services/iconset"
	"github.com/mcoot/searchgame/internal/services/leaderboard"
	"github.com/mcoot/searchgame/internal/services/session"
	"github.com/mcoot/searchgame/internal/storage"
	"github.com/mcoot/searchgame/internal/storage/memory"
	redisstorage "github.com/mcoot/searchgame/internal/storage/redis"
	sqlstorage "github.com/mcoot/searchgame/internal/storage/sql"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeSQLite   = sqlstorage.DriverSQLite
	StorageTypePostgres = sqlstorage.DriverPostgres
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage
	Cache   storage.LeaderboardCache

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService        *auth.Service
	SessionService     *session.Service
	LeaderboardService *leaderboard.Service
	IconSetService     *iconset.Service

	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "sqlite" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// SQLConfig holds database settings (required for sqlite and postgres)
	SQLConfig *sqlstorage.Config
	// RedisConfig enables the leaderboard cache (optional)
	RedisConfig *redisstorage.Config

	AuthConfig        auth.Config
	SessionConfig     session.Config
	LeaderboardConfig leaderboard.Config
}

// New creates a new application with all dependencies wired. SQL schemas
// are migrated before New returns.
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeSQLite, StorageTypePostgres:
		if cfg.SQLConfig == nil {
			return nil, fmt.Errorf("SQLConfig required when StorageType is %s", storageType)
		}
		sqlCfg := *cfg.SQLConfig
		sqlCfg.Driver = storageType
		if sqlCfg.Logger == nil {
			sqlCfg.Logger = logger
		}
		sqlStore, err := sqlstorage.Open(sqlCfg)
		if err != nil {
			return nil, err
		}
		closers = append(closers, sqlStore)
		if err := sqlStore.Migrate(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		store = sqlStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'sqlite' or 'postgres'")
	}

	var cache storage.LeaderboardCache = storage.NopCache{}
	if cfg.RedisConfig != nil {
		redisCache, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, redisCache)
		cache = redisCache
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	app, err := newWithDependencies(store, cache, clk, rnd, cfg, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, cache storage.LeaderboardCache, clk clock.Clock, rnd random.Random, cfg Config, logger *slog.Logger) (*App, error) {
	// Create services
	authService, err := auth.New(store, cache, clk, logger, cfg.AuthConfig)
	if err != nil {
		return nil, err
	}
	sessionService := session.New(store, cache, clk, logger, cfg.SessionConfig)
	leaderboardService := leaderboard.New(store, cache, logger, cfg.LeaderboardConfig)
	iconSetService := iconset.New(store, clk, logger)

	return &App{
		Storage:            store,
		Cache:              cache,
		Clock:              clk,
		Random:             rnd,
		AuthService:        authService,
		SessionService:     sessionService,
		LeaderboardService: leaderboardService,
		IconSetService:     iconSetService,
	}, nil
}

// Close releases storage and cache connections
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
