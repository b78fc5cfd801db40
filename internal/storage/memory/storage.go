package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users      map[model.UserID]*model.User
	phoneIndex map[string]model.UserID
	sessions   map[model.SessionID]*model.GameSession
	iconSets   []*model.IconSet
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:      make(map[model.UserID]*model.User),
		phoneIndex: make(map[string]model.UserID),
		sessions:   make(map[model.SessionID]*model.GameSession),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.phoneIndex[user.Phone]; ok {
		return model.ErrPhoneExists
	}
	u := *user
	s.users[u.ID] = &u
	s.phoneIndex[u.Phone] = u.ID
	return nil
}

func (s *Storage) UpdateUserName(ctx context.Context, id model.UserID, name string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Name = name
	u.UpdatedAt = updatedAt
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) GetUserByPhone(ctx context.Context, phone string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.phoneIndex[phone]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// Session operations

func (s *Storage) CreateSessionWithinLimit(ctx context.Context, session *model.GameSession, phone string, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countCompletedByPhone(phone) >= int64(limit) {
		return model.ErrAttemptLimitExceeded
	}
	cp := *session
	s.sessions[cp.ID] = &cp
	return nil
}

// countCompletedByPhone must be called with the lock held
func (s *Storage) countCompletedByPhone(phone string) int64 {
	var n int64
	for _, sess := range s.sessions {
		if !sess.Completed {
			continue
		}
		if u, ok := s.users[sess.UserID]; ok && u.Phone == phone {
			n++
		}
	}
	return n
}

func (s *Storage) GetOpenSession(ctx context.Context, id model.SessionID, userID model.UserID) (*model.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || sess.Completed {
		return nil, model.ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (s *Storage) CompleteSession(ctx context.Context, id model.SessionID, userID model.UserID, endTime time.Time, score int64, phone string, limit int) (*model.GameSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.UserID != userID || sess.Completed {
		return nil, model.ErrSessionNotFound
	}
	if s.countCompletedByPhone(phone) >= int64(limit) {
		return nil, model.ErrAttemptLimitExceeded
	}
	sess.Complete(endTime, score)
	return copySession(sess), nil
}

// Ranking operations

func (s *Storage) CountCompletedSessions(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, sess := range s.sessions {
		if sess.Completed && sess.Score != nil {
			n++
		}
	}
	return n, nil
}

func (s *Storage) ListCompletedSessions(ctx context.Context, limit int) ([]model.RankedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := make([]model.RankedSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !sess.Completed || sess.Score == nil || sess.EndTime == nil {
			continue
		}
		u, ok := s.users[sess.UserID]
		if !ok {
			continue
		}
		ranked = append(ranked, model.RankedSession{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Name:      u.Name,
			Phone:     u.Phone,
			Score:     *sess.Score,
			EndTime:   *sess.EndTime,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return model.RankedBefore(ranked[i], ranked[j])
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Icon set operations

func (s *Storage) ListActiveIconSets(ctx context.Context) ([]*model.IconSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sets []*model.IconSet
	for _, set := range s.iconSets {
		if set.IsActive {
			sets = append(sets, copyIconSet(set))
		}
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Difficulty != sets[j].Difficulty {
			return sets[i].Difficulty < sets[j].Difficulty
		}
		return sets[i].ID < sets[j].ID
	})
	return sets, nil
}

func (s *Storage) ReplaceIconSets(ctx context.Context, sets []*model.IconSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iconSets = make([]*model.IconSet, len(sets))
	for i, set := range sets {
		s.iconSets[i] = copyIconSet(set)
	}
	return nil
}

func copySession(sess *model.GameSession) *model.GameSession {
	cp := *sess
	if sess.EndTime != nil {
		t := *sess.EndTime
		cp.EndTime = &t
	}
	if sess.Score != nil {
		v := *sess.Score
		cp.Score = &v
	}
	return &cp
}

func copyIconSet(set *model.IconSet) *model.IconSet {
	cp := *set
	cp.Icons = make([]model.Icon, len(set.Icons))
	copy(cp.Icons, set.Icons)
	return &cp
}
