// Package storagetest holds a conformance suite every storage.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/searchgame/internal/model"
	"github.com/mcoot/searchgame/internal/storage"
)

// Suite exercises a storage.Storage. Set NewStorage before running it.
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	storage storage.Storage
	ctx     context.Context
	base    time.Time
}

func (s *Suite) SetupTest() {
	s.storage = s.NewStorage()
	s.ctx = context.Background()
	s.base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *Suite) createUser(id, name, phone string) *model.User {
	u := &model.User{
		ID:        model.UserID(id),
		Name:      name,
		Phone:     phone,
		CreatedAt: s.base,
		UpdatedAt: s.base,
	}
	s.Require().NoError(s.storage.CreateUser(s.ctx, u))
	return u
}

func (s *Suite) startSession(id string, userID model.UserID, phone string) *model.GameSession {
	sess := &model.GameSession{
		ID:        model.SessionID(id),
		UserID:    userID,
		StartTime: s.base,
		CreatedAt: s.base,
	}
	s.Require().NoError(s.storage.CreateSessionWithinLimit(s.ctx, sess, phone, 100))
	return sess
}

func (s *Suite) completeSession(id string, userID model.UserID, score int64, offset time.Duration) {
	u, err := s.storage.GetUser(s.ctx, userID)
	s.Require().NoError(err)
	_, err = s.storage.CompleteSession(s.ctx, model.SessionID(id), userID, s.base.Add(offset), score, u.Phone, 100)
	s.Require().NoError(err)
}

func (s *Suite) completedFor(phone string) int {
	ranked, err := s.storage.ListCompletedSessions(s.ctx, 0)
	s.Require().NoError(err)
	n := 0
	for _, r := range ranked {
		if r.Phone == phone {
			n++
		}
	}
	return n
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	s.createUser("u1", "Alice", "+15551234567")

	u, err := s.storage.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("Alice", u.Name)
	s.Equal("+15551234567", u.Phone)
	s.True(u.CreatedAt.Equal(s.base))
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.storage.GetUser(s.ctx, "missing")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserByPhone() {
	s.createUser("u1", "Alice", "+15551234567")

	u, err := s.storage.GetUserByPhone(s.ctx, "+15551234567")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), u.ID)

	_, err = s.storage.GetUserByPhone(s.ctx, "+15550000000")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestCreateUserRejectsDuplicatePhone() {
	s.createUser("u1", "Alice", "+15551234567")

	err := s.storage.CreateUser(s.ctx, &model.User{ID: "u2", Name: "Bob", Phone: "+15551234567", CreatedAt: s.base, UpdatedAt: s.base})
	s.ErrorIs(err, model.ErrPhoneExists)
}

func (s *Suite) TestUpdateUserName() {
	s.createUser("u1", "Alice", "+15551234567")

	err := s.storage.UpdateUserName(s.ctx, "u1", "Alicia", s.base.Add(time.Hour))
	s.Require().NoError(err)

	u, err := s.storage.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("Alicia", u.Name)
	s.True(u.UpdatedAt.Equal(s.base.Add(time.Hour)))
}

func (s *Suite) TestUpdateUserNameNotFound() {
	err := s.storage.UpdateUserName(s.ctx, "missing", "X", s.base)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Session tests

func (s *Suite) TestCreateSessionWithinLimitStoresOpenSession() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)

	sess, err := s.storage.GetOpenSession(s.ctx, "s1", u.ID)
	s.Require().NoError(err)
	s.False(sess.Completed)
	s.Nil(sess.Score)
	s.Nil(sess.EndTime)
	s.True(sess.StartTime.Equal(s.base))
}

func (s *Suite) TestCreateSessionWithinLimitCountsAcrossPhone() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)
	s.completeSession("s1", u.ID, 4000, time.Minute)

	sess := &model.GameSession{ID: "s2", UserID: u.ID, StartTime: s.base, CreatedAt: s.base}
	err := s.storage.CreateSessionWithinLimit(s.ctx, sess, u.Phone, 1)
	s.ErrorIs(err, model.ErrAttemptLimitExceeded)

	// Another phone is unaffected
	other := s.createUser("u2", "Bob", "+15557654321")
	sess = &model.GameSession{ID: "s3", UserID: other.ID, StartTime: s.base, CreatedAt: s.base}
	s.NoError(s.storage.CreateSessionWithinLimit(s.ctx, sess, other.Phone, 1))
}

func (s *Suite) TestOpenSessionsDoNotCountTowardLimit() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)
	s.startSession("s2", u.ID, u.Phone)

	s.Equal(0, s.completedFor(u.Phone))

	// Both open sessions were started under a limit of 1 but only one
	// of them may complete
	_, err := s.storage.CompleteSession(s.ctx, "s1", u.ID, s.base.Add(time.Minute), 4000, u.Phone, 1)
	s.Require().NoError(err)
	_, err = s.storage.CompleteSession(s.ctx, "s2", u.ID, s.base.Add(time.Minute), 3000, u.Phone, 1)
	s.ErrorIs(err, model.ErrAttemptLimitExceeded)
	s.Equal(1, s.completedFor(u.Phone))

	// The refused session stays open
	_, err = s.storage.GetOpenSession(s.ctx, "s2", u.ID)
	s.NoError(err)
}

func (s *Suite) TestConcurrentStartsRespectLimit() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)
	s.completeSession("s1", u.ID, 4000, time.Minute)

	// With one completed session and limit 1, every start must fail
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := &model.GameSession{
				ID:        model.SessionID(fmt.Sprintf("c%d", i)),
				UserID:    u.ID,
				StartTime: s.base,
				CreatedAt: s.base,
			}
			errs[i] = s.storage.CreateSessionWithinLimit(s.ctx, sess, u.Phone, 1)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.ErrorIs(err, model.ErrAttemptLimitExceeded)
	}
}

func (s *Suite) TestConcurrentCompletionsRespectLimit() {
	u := s.createUser("u1", "Alice", "+15551234567")

	// Every session starts while the completed count is still zero
	const started = 4
	for i := 0; i < started; i++ {
		sess := &model.GameSession{
			ID:        model.SessionID(fmt.Sprintf("s%d", i)),
			UserID:    u.ID,
			StartTime: s.base,
			CreatedAt: s.base,
		}
		s.Require().NoError(s.storage.CreateSessionWithinLimit(s.ctx, sess, u.Phone, 2))
	}

	var wg sync.WaitGroup
	errs := make([]error, started)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := model.SessionID(fmt.Sprintf("s%d", i))
			_, errs[i] = s.storage.CompleteSession(s.ctx, id, u.ID, s.base.Add(time.Minute), int64(1000*(i+1)), u.Phone, 2)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrAttemptLimitExceeded)
	}
	s.Equal(2, succeeded)
	s.Equal(2, s.completedFor(u.Phone))
}

func (s *Suite) TestCompleteSessionLimitIsPerPhone() {
	alice := s.createUser("u1", "Alice", "+15550000001")
	bob := s.createUser("u2", "Bob", "+15550000002")
	s.startSession("s1", alice.ID, alice.Phone)
	s.startSession("s2", bob.ID, bob.Phone)
	s.completeSession("s1", alice.ID, 4000, time.Minute)

	_, err := s.storage.CompleteSession(s.ctx, "s2", bob.ID, s.base.Add(time.Minute), 3000, bob.Phone, 1)
	s.NoError(err)
}

func (s *Suite) TestCompleteSessionMissingWinsOverLimit() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)
	s.completeSession("s1", u.ID, 4000, time.Minute)

	_, err := s.storage.CompleteSession(s.ctx, "missing", u.ID, s.base, 100, u.Phone, 1)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestGetOpenSessionRequiresOwner() {
	alice := s.createUser("u1", "Alice", "+15551234567")
	bob := s.createUser("u2", "Bob", "+15557654321")
	s.startSession("s1", alice.ID, alice.Phone)

	_, err := s.storage.GetOpenSession(s.ctx, "s1", bob.ID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestCompleteSession() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)

	sess, err := s.storage.CompleteSession(s.ctx, "s1", u.ID, s.base.Add(42500*time.Millisecond), 4250, u.Phone, 2)
	s.Require().NoError(err)
	s.True(sess.Completed)
	s.Require().NotNil(sess.Score)
	s.Equal(int64(4250), *sess.Score)
	s.Require().NotNil(sess.EndTime)
	s.True(sess.EndTime.Equal(s.base.Add(42500 * time.Millisecond)))

	s.Equal(1, s.completedFor(u.Phone))
}

func (s *Suite) TestCompleteSessionOnlyOnce() {
	u := s.createUser("u1", "Alice", "+15551234567")
	s.startSession("s1", u.ID, u.Phone)
	s.completeSession("s1", u.ID, 4250, time.Minute)

	_, err := s.storage.CompleteSession(s.ctx, "s1", u.ID, s.base.Add(2*time.Minute), 100, u.Phone, 100)
	s.ErrorIs(err, model.ErrSessionNotFound)

	_, err = s.storage.GetOpenSession(s.ctx, "s1", u.ID)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *Suite) TestCompleteSessionRequiresOwner() {
	alice := s.createUser("u1", "Alice", "+15551234567")
	bob := s.createUser("u2", "Bob", "+15557654321")
	s.startSession("s1", alice.ID, alice.Phone)

	_, err := s.storage.CompleteSession(s.ctx, "s1", bob.ID, s.base, 100, bob.Phone, 100)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

// Ranking tests

func (s *Suite) TestListCompletedSessionsOrdersByScore() {
	alice := s.createUser("u1", "Alice", "+15550000001")
	bob := s.createUser("u2", "Bob", "+15550000002")
	s.startSession("s1", alice.ID, alice.Phone)
	s.startSession("s2", bob.ID, bob.Phone)
	s.startSession("s3", alice.ID, alice.Phone)
	s.startSession("s4", bob.ID, bob.Phone) // left open
	s.completeSession("s1", alice.ID, 5000, time.Minute)
	s.completeSession("s2", bob.ID, 3000, time.Minute)
	s.completeSession("s3", alice.ID, 4000, time.Minute)

	ranked, err := s.storage.ListCompletedSessions(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(ranked, 3)
	s.Equal([]int64{3000, 4000, 5000}, []int64{ranked[0].Score, ranked[1].Score, ranked[2].Score})
	s.Equal("Bob", ranked[0].Name)
	s.Equal("+15550000002", ranked[0].Phone)

	top, err := s.storage.ListCompletedSessions(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(top, 2)

	n, err := s.storage.CountCompletedSessions(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), n)
}

func (s *Suite) TestListCompletedSessionsBreaksTiesByCompletion() {
	alice := s.createUser("u1", "Alice", "+15550000001")
	bob := s.createUser("u2", "Bob", "+15550000002")
	s.startSession("s1", alice.ID, alice.Phone)
	s.startSession("s2", bob.ID, bob.Phone)
	s.completeSession("s1", alice.ID, 3000, 2*time.Minute)
	s.completeSession("s2", bob.ID, 3000, time.Minute)

	ranked, err := s.storage.ListCompletedSessions(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(ranked, 2)
	s.Equal(model.SessionID("s2"), ranked[0].SessionID)
	s.Equal(model.SessionID("s1"), ranked[1].SessionID)
}

// Icon set tests

func (s *Suite) TestReplaceAndListIconSets() {
	sets := []*model.IconSet{
		{ID: "a", Name: "Hard", Icons: model.NewIconGrid("eye", 4, 1), CorrectIcon: 1, Difficulty: 4, IsActive: true, CreatedAt: s.base},
		{ID: "b", Name: "Easy", Icons: model.NewIconGrid("security", 4, 2), CorrectIcon: 2, Difficulty: 1, IsActive: true, CreatedAt: s.base},
		{ID: "c", Name: "Hidden", Icons: model.NewIconGrid("malware", 4, 0), Difficulty: 2, IsActive: false, CreatedAt: s.base},
	}
	s.Require().NoError(s.storage.ReplaceIconSets(s.ctx, sets))

	active, err := s.storage.ListActiveIconSets(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("Easy", active[0].Name)
	s.Equal("Hard", active[1].Name)
	s.Equal(model.NewIconGrid("security", 4, 2), active[0].Icons)

	// Replacing drops previous sets
	s.Require().NoError(s.storage.ReplaceIconSets(s.ctx, sets[:1]))
	active, err = s.storage.ListActiveIconSets(s.ctx)
	s.Require().NoError(err)
	s.Len(active, 1)
}
