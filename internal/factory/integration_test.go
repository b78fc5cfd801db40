package factory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/services/auth"
	redisstorage "github.com/mcoot/searchgame/internal/storage/redis"
	sqlstorage "github.com/mcoot/searchgame/internal/storage/sql"
	"github.com/mcoot/searchgame/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
	s.Require().NoError(s.app.IconSetService.SeedDefaults(s.ctx))
}

func (s *IntegrationSuite) play(userID model.UserID, elapsed time.Duration) *model.GameSession {
	sess, err := s.app.SessionService.Start(s.ctx, userID)
	s.Require().NoError(err)
	s.app.MockClock.Advance(elapsed)
	total := float64(elapsed / (10 * time.Millisecond))
	done, err := s.app.SessionService.Complete(s.ctx, userID, sess.ID, &total)
	s.Require().NoError(err)
	return done
}

// Test: register, play, and appear on the leaderboard
func (s *IntegrationSuite) TestRegisterPlayAndRank() {
	reg, err := s.app.AuthService.Register(s.ctx, "Alice", "+15551234567")
	s.Require().NoError(err)

	userID, err := s.app.AuthService.ValidateToken(reg.Token)
	s.Require().NoError(err)

	done := s.play(userID, 42500*time.Millisecond)
	s.Equal(int64(4250), *done.Score)

	lb, err := s.app.LeaderboardService.Top(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(lb.Entries, 1)
	s.Equal(int64(4250), lb.Entries[0].Time)
	s.Equal("Alice", lb.Entries[0].Name)
	s.Equal(int64(1), lb.TotalGames)
}

// Test: two names registered to one phone share the attempt cap
func (s *IntegrationSuite) TestSharedPhoneCap() {
	first, err := s.app.AuthService.Register(s.ctx, "Alice", "+15551234567")
	s.Require().NoError(err)
	s.play(first.User.ID, 40*time.Second)

	second, err := s.app.AuthService.Register(s.ctx, "Alicia", "+1 (555) 123-4567")
	s.Require().NoError(err)
	s.False(second.Created)
	s.Equal(first.User.ID, second.User.ID)
	s.Equal("Alicia", second.User.Name)
	s.play(second.User.ID, 50*time.Second)

	_, err = s.app.SessionService.Start(s.ctx, first.User.ID)
	s.ErrorIs(err, model.ErrAttemptLimitExceeded)
	_, err = s.app.SessionService.Start(s.ctx, second.User.ID)
	s.ErrorIs(err, model.ErrAttemptLimitExceeded)

	// Both completions rank under the latest name
	lb, err := s.app.LeaderboardService.Top(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(lb.Entries, 2)
	s.Equal("Alicia", lb.Entries[0].Name)
}

// Test: context leaderboard after many players
func (s *IntegrationSuite) TestContextLeaderboard() {
	var me model.UserID
	for i := range 8 {
		reg, err := s.app.AuthService.Register(s.ctx, fmt.Sprintf("P%d", i), fmt.Sprintf("+1555000%04d", i))
		s.Require().NoError(err)
		s.play(reg.User.ID, time.Duration(10+i)*time.Second)
		if i == 6 {
			me = reg.User.ID
		}
	}

	view, err := s.app.LeaderboardService.WithContext(s.ctx, me)
	s.Require().NoError(err)
	s.Equal(7, *view.UserRank)
	s.Len(view.Top, 5)
	s.Len(view.UserContext, 3)
	s.True(view.UserContext[2].IsCurrentUser)
}

// Test: random icon sets draw from the injected random source
func (s *IntegrationSuite) TestRandomIconSetsUseAppRandom() {
	s.app.MockRandom.QueueIntn(0, 0, 0, 0, 0, 17)

	sets, err := s.app.IconSetService.Random(s.ctx, 1, s.app.Random)
	s.Require().NoError(err)
	s.Require().Len(sets, 1)
	s.Equal(17, sets[0].CorrectIcon)
}

func TestNewMemory(t *testing.T) {
	app, err := New(context.Background(), Config{})
	require.NoError(t, err)
	require.NoError(t, app.Close())
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	_, err := New(context.Background(), Config{StorageType: "cassandra"})
	require.Error(t, err)
}

func TestNewSQLRequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Config{StorageType: StorageTypeSQLite})
	require.Error(t, err)
}

func TestNewWithSQLiteAndRedis(t *testing.T) {
	ctx := context.Background()
	mini := miniredis.RunT(t)

	sqlCfg := sqlstorage.DefaultConfig()
	sqlCfg.DSN = "file:factory_test?mode=memory&cache=shared"
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://" + mini.Addr()

	app, err := New(ctx, Config{
		Logger:      testutil.NopLogger(),
		StorageType: StorageTypeSQLite,
		SQLConfig:   &sqlCfg,
		RedisConfig: &redisCfg,
		AuthConfig:  authConfigForTest(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	reg, err := app.AuthService.Register(ctx, "Alice", "+15551234567")
	require.NoError(t, err)

	sess, err := app.SessionService.Start(ctx, reg.User.ID)
	require.NoError(t, err)
	total := 0.0
	_, err = app.SessionService.Complete(ctx, reg.User.ID, sess.ID, &total)
	require.NoError(t, err)

	lb, err := app.LeaderboardService.Top(ctx)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	require.Equal(t, "Alice", lb.Entries[0].Name)

	// The leaderboard is now cached in Redis
	keys := mini.Keys()
	require.NotEmpty(t, keys)

	// A rename through re-registration is visible on the next read
	_, err = app.AuthService.Register(ctx, "Alicia", "+15551234567")
	require.NoError(t, err)
	lb, err = app.LeaderboardService.Top(ctx)
	require.NoError(t, err)
	require.Len(t, lb.Entries, 1)
	require.Equal(t, "Alicia", lb.Entries[0].Name)
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = "redis://127.0.0.1:1"

	_, err := New(context.Background(), Config{RedisConfig: &redisCfg})
	require.Error(t, err)
}

func authConfigForTest() auth.Config {
	return auth.Config{Secret: "integration-secret", TokenTTL: time.Hour}
}
