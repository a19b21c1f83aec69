package repository

import (
	"context"
	"fmt"

	"skillquest/internal/domain"
	"skillquest/internal/repository/models"

	"github.com/jmoiron/sqlx"
)

// sqlxAchievementRepository implements domain.AchievementRepository using sqlx.
type sqlxAchievementRepository struct {
	db *sqlx.DB
}

// NewSQLXAchievementRepository creates a new instance of sqlxAchievementRepository.
func NewSQLXAchievementRepository(db *sqlx.DB) domain.AchievementRepository {
	return &sqlxAchievementRepository{db: db}
}

func toDomainAchievement(m *models.Achievement) domain.Achievement {
	return domain.Achievement{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description.String,
		IconURL:     m.IconURL.String,
		XPReward:    m.XPReward,
		Criterion:   domain.AchievementCriterion(m.Criterion),
		Threshold:   m.Threshold,
		CreatedAt:   m.CreatedAt,
	}
}

// GetAllAchievements returns the seeded catalogue ordered by threshold so
// evaluation unlocks cheaper badges first.
func (r *sqlxAchievementRepository) GetAllAchievements(ctx context.Context) ([]domain.Achievement, error) {
	var rows []models.Achievement
	query := `SELECT * FROM achievements ORDER BY threshold ASC`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to select achievements: %w", err)
	}
	achievements := make([]domain.Achievement, len(rows))
	for i := range rows {
		achievements[i] = toDomainAchievement(&rows[i])
	}
	return achievements, nil
}

// GetUnlockedIDs returns the set of achievement IDs a user already holds.
func (r *sqlxAchievementRepository) GetUnlockedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	var ids []string
	query := `SELECT achievement_id FROM user_achievements WHERE user_id = :1`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to select unlocked achievements: %w", err)
	}
	unlocked := make(map[string]bool, len(ids))
	for _, id := range ids {
		unlocked[id] = true
	}
	return unlocked, nil
}

// RecordUnlock inserts an unlock row. A duplicate pair surfaces as CONFLICT
// so a concurrent evaluator does not double-award the XP bonus.
func (r *sqlxAchievementRepository) RecordUnlock(ctx context.Context, unlock *domain.UserAchievement) error {
	query := `INSERT INTO user_achievements (USER_ID, ACHIEVEMENT_ID, UNLOCKED_AT) VALUES (:1, :2, :3)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, unlock.UserID, unlock.AchievementID, unlock.UnlockedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("achievement already unlocked")
		}
		return fmt.Errorf("failed to record unlock: %w", err)
	}
	return nil
}

// CountGradedAttempts counts a student's graded attempts for the
// tests_graded criterion.
func (r *sqlxAchievementRepository) CountGradedAttempts(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM test_attempts WHERE student_id = :1 AND status = :2`
	if err := GetExecutor(ctx, r.db).GetContext(ctx, &count, query, userID, string(domain.AttemptStatusGraded)); err != nil {
		return 0, fmt.Errorf("failed to count graded attempts: %w", err)
	}
	return count, nil
}
