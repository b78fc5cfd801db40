package response

import (
	"time"

	"github.com/mcoot/searchgame/internal/model"
)

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// User represents a user in API responses
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:        string(u.ID),
		Name:      u.Name,
		Phone:     u.Phone,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterResponse is the response for registration
type RegisterResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

// MeResponse is the response for the current-user endpoint
type MeResponse struct {
	User User `json:"user"`
}

// StartResponse is the response for starting a game session
type StartResponse struct {
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId"`
	StartTime time.Time `json:"startTime"`
}

// Session represents a game session in API responses
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Score     *int64     `json:"score"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"createdAt"`
}

// SessionFromModel converts a model.GameSession
func SessionFromModel(s *model.GameSession) Session {
	return Session{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Score:     s.Score,
		Completed: s.Completed,
		CreatedAt: s.CreatedAt,
	}
}

// CompleteResponse is the response for completing a game session
type CompleteResponse struct {
	Message string  `json:"message"`
	Session Session `json:"session"`
}

// LeaderboardEntry is one ranked row. IsCurrentUser is only present in
// the per-user view.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Time          int64     `json:"time"`
	CompletedAt   time.Time `json:"completedAt"`
	IsCurrentUser *bool     `json:"isCurrentUser,omitempty"`
}

func entryFromModel(e model.LeaderboardEntry, withCurrentUser bool) LeaderboardEntry {
	out := LeaderboardEntry{
		Rank:        e.Rank,
		Name:        e.Name,
		Phone:       e.Phone,
		Time:        e.Time,
		CompletedAt: e.CompletedAt,
	}
	if withCurrentUser {
		current := e.IsCurrentUser
		out.IsCurrentUser = &current
	}
	return out
}

func entriesFromModel(entries []model.LeaderboardEntry, withCurrentUser bool) []LeaderboardEntry {
	if entries == nil {
		return nil
	}
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = entryFromModel(e, withCurrentUser)
	}
	return out
}

// LeaderboardResponse is the global top-N leaderboard
type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	TotalGames  int64              `json:"totalGames"`
}

// LeaderboardFromModel converts a model.Leaderboard
func LeaderboardFromModel(lb *model.Leaderboard) LeaderboardResponse {
	entries := entriesFromModel(lb.Entries, false)
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	return LeaderboardResponse{
		Leaderboard: entries,
		TotalGames:  lb.TotalGames,
	}
}

// ContextLeaderboardResponse is the leaderboard as seen by one user.
// UserContext and UserRank are null when not applicable.
type ContextLeaderboardResponse struct {
	TopLeaderboard []LeaderboardEntry `json:"topLeaderboard"`
	UserContext    []LeaderboardEntry `json:"userContext"`
	UserRank       *int               `json:"userRank"`
	TotalGames     int64              `json:"totalGames"`
	HasUserPlayed  bool               `json:"hasUserPlayed"`
}

// ContextLeaderboardFromModel converts a model.ContextLeaderboard
func ContextLeaderboardFromModel(lb *model.ContextLeaderboard) ContextLeaderboardResponse {
	top := entriesFromModel(lb.Top, true)
	if top == nil {
		top = []LeaderboardEntry{}
	}
	return ContextLeaderboardResponse{
		TopLeaderboard: top,
		UserContext:    entriesFromModel(lb.UserContext, true),
		UserRank:       lb.UserRank,
		TotalGames:     lb.TotalGames,
		HasUserPlayed:  lb.HasUserPlayed,
	}
}

// IconSet represents an icon set in API responses
type IconSet struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icons       []model.Icon `json:"icons"`
	CorrectIcon int          `json:"correctIcon"`
	Difficulty  int          `json:"difficulty"`
}

// IconSetsResponse lists icon sets
type IconSetsResponse struct {
	IconSets []IconSet `json:"iconSets"`
}

// IconSetsFromModel converts model icon sets
func IconSetsFromModel(sets []*model.IconSet) IconSetsResponse {
	out := make([]IconSet, len(sets))
	for i, s := range sets {
		out[i] = IconSet{
			ID:          string(s.ID),
			Name:        s.Name,
			Description: s.Description,
			Icons:       s.Icons,
			CorrectIcon: s.CorrectIcon,
			Difficulty:  s.Difficulty,
		}
	}
	return IconSetsResponse{IconSets: out}
}
