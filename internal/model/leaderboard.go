package model

import "time"

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank          int
	UserID        UserID
	Name          string
	Phone         string
	Time          int64
	CompletedAt   time.Time
	IsCurrentUser bool
}

// Leaderboard is the global top-N standing
type Leaderboard struct {
	Entries    []LeaderboardEntry
	TotalGames int64
}

// ContextLeaderboard is the standing as seen by one user
type ContextLeaderboard struct {
	Top           []LeaderboardEntry
	UserContext   []LeaderboardEntry // nil unless the user ranks below the top band
	UserRank      *int
	TotalGames    int64
	HasUserPlayed bool
}
