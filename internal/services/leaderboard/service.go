// Package leaderboard ranks completed game sessions.
package leaderboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

const (
	// TopBandSize is how many leading entries the context view always shows
	TopBandSize = 5

	// contextAbove is how many entries above the user the context window holds
	contextAbove = 2
)

// Config holds leaderboard presentation settings
type Config struct {
	// Size is N for the global top-N leaderboard
	Size int
	// TotalGamesBias is added to the reported completed-games count
	TotalGamesBias int64
}

// DefaultConfig returns default leaderboard settings
func DefaultConfig() Config {
	return Config{Size: 10}
}

// Service computes leaderboards
type Service struct {
	storage storage.Storage
	cache   storage.LeaderboardCache
	logger  *slog.Logger
	cfg     Config
}

// New creates a new leaderboard Service. cache may be nil.
func New(store storage.Storage, cache storage.LeaderboardCache, logger *slog.Logger, cfg Config) *Service {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	if cache == nil {
		cache = storage.NopCache{}
	}
	return &Service{
		storage: store,
		cache:   cache,
		logger:  logger,
		cfg:     cfg,
	}
}

// Top returns the best Size completed sessions in rank order. A user may
// appear more than once.
func (s *Service) Top(ctx context.Context) (*model.Leaderboard, error) {
	cached, err := s.cache.GetTop(ctx, s.cfg.Size)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, model.ErrCacheMiss) {
		s.logger.Warn("leaderboard cache read failed", slog.String("error", err.Error()))
	}

	// Read before the database so an invalidation racing the load
	// prevents the result from being cached
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.logger.Warn("leaderboard cache generation read failed", slog.String("error", genErr.Error()))
	}

	sessions, err := s.storage.ListCompletedSessions(ctx, s.cfg.Size)
	if err != nil {
		return nil, err
	}
	total, err := s.totalGames(ctx)
	if err != nil {
		return nil, err
	}

	lb := &model.Leaderboard{
		Entries:    make([]model.LeaderboardEntry, len(sessions)),
		TotalGames: total,
	}
	for i, sess := range sessions {
		lb.Entries[i] = entry(i+1, sess, "")
	}

	if genErr == nil {
		if err := s.cache.SetTop(ctx, s.cfg.Size, gen, lb); err != nil {
			s.logger.Warn("leaderboard cache write failed", slog.String("error", err.Error()))
		}
	}
	return lb, nil
}

// WithContext ranks each user by their best session only and returns the
// top band plus, when the user ranks below it, a window ending at their row.
func (s *Service) WithContext(ctx context.Context, userID model.UserID) (*model.ContextLeaderboard, error) {
	sessions, err := s.storage.ListCompletedSessions(ctx, 0)
	if err != nil {
		return nil, err
	}
	total, err := s.totalGames(ctx)
	if err != nil {
		return nil, err
	}

	best := BestPerUser(sessions)

	result := &model.ContextLeaderboard{
		Top:        make([]model.LeaderboardEntry, 0, min(TopBandSize, len(best))),
		TotalGames: total,
	}

	userIdx := -1
	for i, sess := range best {
		if sess.UserID == userID {
			userIdx = i
			break
		}
	}

	for i := 0; i < len(best) && i < TopBandSize; i++ {
		result.Top = append(result.Top, entry(i+1, best[i], userID))
	}

	if userIdx >= 0 {
		rank := userIdx + 1
		result.UserRank = &rank
		result.HasUserPlayed = true

		if rank > TopBandSize {
			start := max(0, userIdx-contextAbove)
			result.UserContext = make([]model.LeaderboardEntry, 0, userIdx-start+1)
			for i := start; i <= userIdx; i++ {
				result.UserContext = append(result.UserContext, entry(i+1, best[i], userID))
			}
		}
	}

	return result, nil
}

// BestPerUser keeps the first session seen for each user. Given sessions in
// rank order, that is each user's best, and the result stays in rank order.
func BestPerUser(ranked []model.RankedSession) []model.RankedSession {
	seen := make(map[model.UserID]struct{}, len(ranked))
	best := make([]model.RankedSession, 0, len(ranked))
	for _, sess := range ranked {
		if _, ok := seen[sess.UserID]; ok {
			continue
		}
		seen[sess.UserID] = struct{}{}
		best = append(best, sess)
	}
	return best
}

func (s *Service) totalGames(ctx context.Context) (int64, error) {
	n, err := s.storage.CountCompletedSessions(ctx)
	if err != nil {
		return 0, err
	}
	return n + s.cfg.TotalGamesBias, nil
}

func entry(rank int, sess model.RankedSession, currentUser model.UserID) model.LeaderboardEntry {
	return model.LeaderboardEntry{
		Rank:          rank,
		UserID:        sess.UserID,
		Name:          sess.Name,
		Phone:         sess.Phone,
		Time:          sess.Score,
		CompletedAt:   sess.EndTime,
		IsCurrentUser: currentUser != "" && sess.UserID == currentUser,
	}
}
