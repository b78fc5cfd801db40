package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no stray config.yaml or
// .env is picked up
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "searchgame.db", cfg.Database.DSN)
	assert.Equal(t, 2, cfg.Game.MaxAttempts)
	assert.Equal(t, 10, cfg.Game.LeaderboardSize)
	assert.Equal(t, int64(0), cfg.Game.TotalGamesBias)
	assert.True(t, cfg.Game.SeedIconSets)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Server.Host)
}

func TestLoadFromFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
database:
  driver: postgres
  dsn: postgres://localhost/searchgame
game:
  max_attempts: 3
  total_games_bias: 484
auth:
  token_ttl: 2h
cors:
  allowed_origins:
    - https://example.com
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/searchgame", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Game.MaxAttempts)
	assert.Equal(t, int64(484), cfg.Game.TotalGamesBias)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"https://example.com"}, cfg.CORS.AllowedOrigins)
}

func TestDiscoversConfigYAML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("game:\n  leaderboard_size: 5\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Game.LeaderboardSize)
}

func TestMissingExplicitFileFails(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://db/prod")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("GAME_MAX_ATTEMPTS", "4")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres://db/prod", cfg.Database.DSN)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "redis://cache:6379", cfg.Redis.URL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 4, cfg.Game.MaxAttempts)
}

func TestDotEnvFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_SECRET=from-dotenv\n"), 0o600))
	// godotenv never overrides variables that are already set
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JWTSecret)

	require.NoError(t, os.Unsetenv("JWT_SECRET"))
}

func TestValidate(t *testing.T) {
	isolate(t)

	t.Setenv("DATABASE_DRIVER", "oracle")
	_, err := Load("")
	assert.ErrorContains(t, err, "database.driver")

	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("GAME_MAX_ATTEMPTS", "0")
	_, err = Load("")
	assert.ErrorContains(t, err, "max_attempts")
}

func TestLogLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug"}}
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())

	cfg.Log.Level = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
}
