package service

import (
	"context"
	"fmt"

	"skillquest/internal/cache"
	"skillquest/internal/domain"
	"skillquest/internal/logger"

	"go.uber.org/zap"
)

// LeaderboardService exposes the global XP ranking.
type LeaderboardService interface {
	// Top returns the highest-ranked users with their display names.
	Top(ctx context.Context, limit int) ([]RankedUser, error)

	// RankOf returns a user's leaderboard position, 0 when unranked.
	RankOf(ctx context.Context, userID string) (int, error)

	// RebuildEntry re-syncs one user's score from the relational source of
	// truth, for when Redis was down during awards.
	RebuildEntry(ctx context.Context, userID string) error
}

// RankedUser is one leaderboard row enriched with profile data.
type RankedUser struct {
	UserID string
	Name   string
	Score  int
	Rank   int
}

type leaderboardServiceImpl struct {
	store    domain.LeaderboardStore
	userRepo domain.UserRepository
}

// NewLeaderboardService creates a new instance of LeaderboardService.
func NewLeaderboardService(store domain.LeaderboardStore, userRepo domain.UserRepository) LeaderboardService {
	return &leaderboardServiceImpl{store: store, userRepo: userRepo}
}

func (s *leaderboardServiceImpl) Top(ctx context.Context, limit int) ([]RankedUser, error) {
	entries, err := s.store.Top(ctx, cache.XPLeaderboardKey, limit)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedUser, 0, len(entries))
	for _, e := range entries {
		row := RankedUser{UserID: e.UserID, Score: e.Score, Rank: e.Rank}
		user, err := s.userRepo.GetUserByID(ctx, e.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve leaderboard user: %w", err)
		}
		if user == nil {
			// Deleted account still on the board; skip it rather than show a
			// ghost row.
			logger.Get().Debug("Skipping deleted user on leaderboard", zap.String("userID", e.UserID))
			continue
		}
		row.Name = user.Name
		ranked = append(ranked, row)
	}
	return ranked, nil
}

func (s *leaderboardServiceImpl) RankOf(ctx context.Context, userID string) (int, error) {
	return s.store.Rank(ctx, cache.XPLeaderboardKey, userID)
}

func (s *leaderboardServiceImpl) RebuildEntry(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.NewNotFoundError(fmt.Sprintf("user %s not found", userID))
	}
	return s.store.SetScore(ctx, cache.XPLeaderboardKey, userID, user.TotalXP)
}
