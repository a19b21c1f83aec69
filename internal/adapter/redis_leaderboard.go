package adapter

import (
	"context"
	"fmt"

	"skillquest/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisLeaderboardStore implements domain.LeaderboardStore on a Redis sorted
// set. Scores live in Redis only as a derived ranking; the users table stays
// the source of truth and the set can be rebuilt from it.
type RedisLeaderboardStore struct {
	client *redis.Client
}

// NewRedisLeaderboardStore creates a new instance of RedisLeaderboardStore.
func NewRedisLeaderboardStore(client *redis.Client) domain.LeaderboardStore {
	return &RedisLeaderboardStore{client: client}
}

// IncrementScore adds delta to the member's score, creating the member at
// delta when absent.
func (s *RedisLeaderboardStore) IncrementScore(ctx context.Context, board string, userID string, delta int) error {
	if err := s.client.ZIncrBy(ctx, board, float64(delta), userID).Err(); err != nil {
		return fmt.Errorf("failed to increment leaderboard score: %w", err)
	}
	return nil
}

// SetScore overwrites the member's score.
func (s *RedisLeaderboardStore) SetScore(ctx context.Context, board string, userID string, score int) error {
	member := redis.Z{Score: float64(score), Member: userID}
	if err := s.client.ZAdd(ctx, board, member).Err(); err != nil {
		return fmt.Errorf("failed to set leaderboard score: %w", err)
	}
	return nil
}

// Top returns the highest-scored members, best first.
func (s *RedisLeaderboardStore) Top(ctx context.Context, board string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := s.client.ZRevRangeWithScores(ctx, board, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for i, m := range members {
		userID, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID: userID,
			Score:  int(m.Score),
			Rank:   i + 1,
		})
	}
	return entries, nil
}

// Rank returns the 1-based rank of a member, 0 when the member is not on the
// board.
func (s *RedisLeaderboardStore) Rank(ctx context.Context, board string, userID string) (int, error) {
	rank, err := s.client.ZRevRank(ctx, board, userID).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read leaderboard rank: %w", err)
	}
	return int(rank) + 1, nil
}
