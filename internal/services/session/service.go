// Package session manages timed game attempts: starting them under the
// per-phone attempt cap and completing them with a reconciled score.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/searchgame/internal/dependencies/clock"
	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

const (
	// ScoreUnit is the duration of one score point
	ScoreUnit = 10 * time.Millisecond

	// MaxClockSkew is how far, in score points, the client-reported time
	// may drift from the server-observed time before it is discarded
	MaxClockSkew int64 = 3000
)

// Config holds session rules
type Config struct {
	// MaxCompletedAttempts caps completed sessions per phone number
	MaxCompletedAttempts int
}

// DefaultConfig returns the default session rules
func DefaultConfig() Config {
	return Config{MaxCompletedAttempts: 2}
}

// Service handles the game session lifecycle
type Service struct {
	storage storage.Storage
	cache   storage.LeaderboardCache
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config
}

// New creates a new session Service. cache may be nil.
func New(storage storage.Storage, cache storage.LeaderboardCache, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.MaxCompletedAttempts <= 0 {
		cfg.MaxCompletedAttempts = DefaultConfig().MaxCompletedAttempts
	}
	return &Service{
		storage: storage,
		cache:   cache,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start opens a new session for the user, provided fewer than
// MaxCompletedAttempts sessions have been completed under their phone.
func (s *Service) Start(ctx context.Context, userID model.UserID) (*model.GameSession, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	session := &model.GameSession{
		ID:        model.SessionID(uuid.NewString()),
		UserID:    user.ID,
		StartTime: now,
		CreatedAt: now,
	}

	if err := s.storage.CreateSessionWithinLimit(ctx, session, user.Phone, s.cfg.MaxCompletedAttempts); err != nil {
		if errors.Is(err, model.ErrAttemptLimitExceeded) {
			s.logger.Info("attempt limit reached",
				slog.String("user_id", string(userID)),
				slog.Int("limit", s.cfg.MaxCompletedAttempts),
			)
		}
		return nil, err
	}

	s.logger.Info("session started",
		slog.String("user_id", string(userID)),
		slog.String("session_id", string(session.ID)),
	)
	return session, nil
}

// Complete closes an open session owned by the user. totalTime is the
// client-measured elapsed time in hundredths of a second. The attempt cap
// is checked again here, so sessions opened concurrently while the phone
// was under the cap cannot all complete.
func (s *Service) Complete(ctx context.Context, userID model.UserID, sessionID model.SessionID, totalTime *float64) (*model.GameSession, error) {
	if sessionID == "" || totalTime == nil {
		return nil, model.InvalidArgument("Session ID and total time are required")
	}
	clientElapsed, err := validateTotalTime(*totalTime)
	if err != nil {
		return nil, err
	}

	open, err := s.storage.GetOpenSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	serverElapsed := ServerElapsed(open.StartTime, now)
	score := ReconcileElapsed(clientElapsed, serverElapsed)
	if !withinSkew(clientElapsed, serverElapsed) {
		s.logger.Warn("client time rejected",
			slog.String("session_id", string(sessionID)),
			slog.Int64("client_elapsed", clientElapsed),
			slog.Int64("server_elapsed", serverElapsed),
		)
	}

	completed, err := s.storage.CompleteSession(ctx, sessionID, userID, now, score, user.Phone, s.cfg.MaxCompletedAttempts)
	if err != nil {
		if errors.Is(err, model.ErrAttemptLimitExceeded) {
			s.logger.Info("attempt limit reached at completion",
				slog.String("user_id", string(userID)),
				slog.String("session_id", string(sessionID)),
				slog.Int("limit", s.cfg.MaxCompletedAttempts),
			)
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			// Stale entries expire on their own
			s.logger.Warn("leaderboard cache invalidation failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("session completed",
		slog.String("user_id", string(userID)),
		slog.String("session_id", string(sessionID)),
		slog.Int64("score", score),
	)
	return completed, nil
}

func validateTotalTime(totalTime float64) (int64, error) {
	if math.IsNaN(totalTime) || totalTime < 0 || totalTime > float64(model.MaxScore) {
		return 0, model.InvalidArgument("Total time must be between 0 and 3600000")
	}
	if totalTime != math.Trunc(totalTime) {
		return 0, model.InvalidArgument("Total time must be a whole number of hundredths of a second")
	}
	return int64(totalTime), nil
}

// ServerElapsed returns the time between start and now in score points,
// rounded down
func ServerElapsed(start, now time.Time) int64 {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / ScoreUnit)
}

// ReconcileElapsed picks the score to persist: the client value unless it
// differs from the server value by more than MaxClockSkew, clamped to
// [model.MinScore, model.MaxScore].
func ReconcileElapsed(client, server int64) int64 {
	if !withinSkew(client, server) {
		return clampScore(server)
	}
	return clampScore(client)
}

func withinSkew(client, server int64) bool {
	diff := server - client
	if diff < 0 {
		diff = -diff
	}
	return diff <= MaxClockSkew
}

func clampScore(v int64) int64 {
	return min(max(v, model.MinScore), model.MaxScore)
}
