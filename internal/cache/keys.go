package cache

import "strings"

const (
	GlobalKeyPrefix = "skillquest"

	// XPLeaderboardKey is the sorted set holding the global XP ranking.
	XPLeaderboardKey = GlobalKeyPrefix + ":leaderboard:xp"

	// EventChannelPrefix prefixes the pub/sub channel per event type.
	EventChannelPrefix = GlobalKeyPrefix + ":events"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}
