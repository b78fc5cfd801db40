package redis

import "fmt"

// Key prefix for all cached game data
const keyPrefix = "searchgame"

// leaderboardKey returns the Redis key for a cached top-N leaderboard
func leaderboardKey(limit int) string {
	return fmt.Sprintf("%s:leaderboard:top:%d", keyPrefix, limit)
}

// leaderboardIndexKey returns the Redis key for the SET of cached leaderboard keys
func leaderboardIndexKey() string {
	return fmt.Sprintf("%s:idx:leaderboards", keyPrefix)
}

// leaderboardGenerationKey returns the Redis key of the counter bumped on
// every invalidation
func leaderboardGenerationKey() string {
	return fmt.Sprintf("%s:leaderboard:gen", keyPrefix)
}
