package domain

import (
	"context"
	"time"
)

// AchievementCriterion selects which user statistic an achievement watches.
type AchievementCriterion string

const (
	CriterionTotalXP     AchievementCriterion = "total_xp"
	CriterionStreakDays  AchievementCriterion = "streak_days"
	CriterionTestsGraded AchievementCriterion = "tests_graded"
)

// Achievement is seeded reference data describing one unlockable badge.
type Achievement struct {
	ID          string
	Name        string
	Description string
	IconURL     string
	XPReward    int
	Criterion   AchievementCriterion
	Threshold   int
	CreatedAt   time.Time
}

// Unlocked reports whether the given statistic value satisfies the criterion.
func (a *Achievement) Unlocked(value int) bool {
	return value >= a.Threshold
}

// UserAchievement records one unlock; at most one row per (user, achievement).
type UserAchievement struct {
	UserID        string
	AchievementID string
	UnlockedAt    time.Time
}

// AchievementRepository defines the interface for achievement persistence.
type AchievementRepository interface {
	GetAllAchievements(ctx context.Context) ([]Achievement, error)
	GetUnlockedIDs(ctx context.Context, userID string) (map[string]bool, error)

	// RecordUnlock inserts the unlock row; inserting an already-unlocked pair
	// reports a CONFLICT DomainError which callers treat as already done.
	RecordUnlock(ctx context.Context, unlock *UserAchievement) error

	CountGradedAttempts(ctx context.Context, userID string) (int, error)
}
