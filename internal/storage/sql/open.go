package sql

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds database connection settings
type Config struct {
	// Driver is "sqlite" or "postgres"
	Driver string
	// DSN is a file path / URI for SQLite or a connection URL for Postgres
	DSN string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// SlowQueryThreshold is the duration after which queries are logged at WARN
	SlowQueryThreshold time.Duration

	// Logger receives GORM warnings and errors (optional)
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for a local SQLite database
func DefaultConfig() Config {
	return Config{
		Driver:             DriverSQLite,
		DSN:                "searchgame.db",
		MaxOpenConns:       10,
		MaxIdleConns:       2,
		ConnMaxLifetime:    30 * time.Minute,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// Open connects to the configured database and returns a Storage.
// Call Migrate before first use.
func Open(cfg Config) (*Storage, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one connection avoids "database is locked"
	if cfg.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewWithDB(db), nil
}

// newGormLogger routes GORM's logging through slog
func newGormLogger(cfg Config) logger.Interface {
	handler := slog.Handler(slog.NewJSONHandler(io.Discard, nil))
	if cfg.Logger != nil {
		handler = cfg.Logger.With(slog.String("component", "gorm")).Handler()
	}

	return logger.New(
		slog.NewLogLogger(handler, slog.LevelWarn),
		logger.Config{
			SlowThreshold:             cfg.SlowQueryThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
