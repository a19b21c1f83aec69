package domain

import (
	"context"
	"time"
)

// CacheError represents an error originating from the cache.
type CacheError string

func (e CacheError) Error() string {
	return string(e)
}

// ErrCacheMiss is returned when a key is not found in the cache.
const ErrCacheMiss = CacheError("cache: key not found")

// Cache defines the interface (port) for caching operations.
// Implementations of this interface are the adapters (e.g. RedisCacheAdapter).
type Cache interface {
	// Get retrieves an item from the cache.
	// It returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) (string, error)

	// Set adds an item to the cache, overwriting an existing item if one
	// exists. If expiration is 0 the item is cached indefinitely.
	Set(ctx context.Context, key string, value string, expiration time.Duration) error

	// Delete removes an item from the cache. It does not return an error if
	// the key is not found.
	Delete(ctx context.Context, key string) error

	// Ping checks the health of the cache service.
	Ping(ctx context.Context) error
}

// LeaderboardEntry is one row of a ranked leaderboard.
type LeaderboardEntry struct {
	UserID string
	Score  int
	Rank   int
}

// LeaderboardStore keeps the global XP ranking. The relational store remains
// the source of truth; the ranking is a derived view that can be rebuilt.
type LeaderboardStore interface {
	// IncrementScore adds delta to the member's score.
	IncrementScore(ctx context.Context, board string, userID string, delta int) error

	// SetScore overwrites the member's score (used when rebuilding).
	SetScore(ctx context.Context, board string, userID string, score int) error

	// Top returns the highest-scored members, best first, with ranks starting
	// at 1.
	Top(ctx context.Context, board string, limit int) ([]LeaderboardEntry, error)

	// Rank returns the 1-based rank of a member, or 0 when the member is not
	// on the board.
	Rank(ctx context.Context, board string, userID string) (int, error)
}
