package storage

import (
	"context"
	"time"

	"github.com/mcoot/searchgame/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUserName(ctx context.Context, id model.UserID, name string, updatedAt time.Time) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)

	// Session operations

	// CreateSessionWithinLimit counts completed sessions belonging to any
	// user with the given phone and inserts session only if that count is
	// below limit, as one atomic step. Returns model.ErrAttemptLimitExceeded
	// otherwise.
	CreateSessionWithinLimit(ctx context.Context, session *model.GameSession, phone string, limit int) error
	// GetOpenSession returns the session only if it is owned by userID and
	// not yet completed.
	GetOpenSession(ctx context.Context, id model.SessionID, userID model.UserID) (*model.GameSession, error)
	// CompleteSession marks an open session completed. Returns
	// model.ErrSessionNotFound if no open session owned by userID matches,
	// and model.ErrAttemptLimitExceeded, leaving the session open, if the
	// phone already has limit completed sessions.
	CompleteSession(ctx context.Context, id model.SessionID, userID model.UserID, endTime time.Time, score int64, phone string, limit int) (*model.GameSession, error)

	// Ranking operations

	// CountCompletedSessions counts completed sessions with a score
	CountCompletedSessions(ctx context.Context) (int64, error)
	// ListCompletedSessions returns completed sessions in rank order
	// (model.RankedBefore). limit <= 0 returns all of them.
	ListCompletedSessions(ctx context.Context, limit int) ([]model.RankedSession, error)

	// Icon set operations
	ListActiveIconSets(ctx context.Context) ([]*model.IconSet, error)
	ReplaceIconSets(ctx context.Context, sets []*model.IconSet) error
}

// LeaderboardCache stores computed top-N leaderboards
type LeaderboardCache interface {
	// GetTop returns model.ErrCacheMiss when nothing is cached for limit
	GetTop(ctx context.Context, limit int) (*model.Leaderboard, error)
	// Generation returns a value that changes on every Invalidate. Read it
	// before loading the leaderboard from storage and pass it to SetTop.
	Generation(ctx context.Context) (int64, error)
	// SetTop stores lb unless Invalidate ran after gen was read, in which
	// case lb may predate a completion and is dropped.
	SetTop(ctx context.Context, limit int, gen int64, lb *model.Leaderboard) error
	Invalidate(ctx context.Context) error
}

// NopCache is a LeaderboardCache that never holds anything
type NopCache struct{}

// Ensure NopCache implements the interface
var _ LeaderboardCache = NopCache{}

func (NopCache) GetTop(context.Context, int) (*model.Leaderboard, error) {
	return nil, model.ErrCacheMiss
}

func (NopCache) Generation(context.Context) (int64, error) {
	return 0, nil
}

func (NopCache) SetTop(context.Context, int, int64, *model.Leaderboard) error {
	return nil
}

func (NopCache) Invalidate(context.Context) error {
	return nil
}
