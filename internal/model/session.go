package model

import "time"

// SessionID uniquely identifies a game session
type SessionID string

// Score bounds, in hundredths of a second
const (
	MinScore int64 = 1
	MaxScore int64 = 3_600_000
)

// GameSession is one timed attempt by one user.
// It moves from open (Completed=false) to completed exactly once.
type GameSession struct {
	ID        SessionID
	UserID    UserID
	StartTime time.Time
	EndTime   *time.Time
	Score     *int64 // elapsed hundredths of a second, lower is better
	Completed bool
	CreatedAt time.Time
}

// IsOpen reports whether the session can still be completed
func (s *GameSession) IsOpen() bool {
	return !s.Completed
}

// Complete transitions the session to completed with the given end time and score
func (s *GameSession) Complete(endTime time.Time, score int64) {
	s.EndTime = &endTime
	s.Score = &score
	s.Completed = true
}

// RankedSession is a completed session joined with its owner's display data
type RankedSession struct {
	SessionID SessionID
	UserID    UserID
	Name      string
	Phone     string
	Score     int64
	EndTime   time.Time
}

// RankedBefore orders completed sessions: lower score first, then earlier
// completion, then session ID so equal scores have a stable order.
func RankedBefore(a, b RankedSession) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	if !a.EndTime.Equal(b.EndTime) {
		return a.EndTime.Before(b.EndTime)
	}
	return a.SessionID < b.SessionID
}
