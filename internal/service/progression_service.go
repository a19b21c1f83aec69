package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillquest/internal/cache"
	"skillquest/internal/domain"
	"skillquest/internal/logger"

	"go.uber.org/zap"
)

const levelLadderCacheTTL = 12 * time.Hour

// ProgressionService awards XP and resolves levels, streaks and achievements.
type ProgressionService interface {
	// AwardXP adds XP to a user, updates their activity streak, publishes a
	// level-up event when a threshold is crossed and evaluates achievements.
	// It returns the user's new total and resolved level.
	AwardXP(ctx context.Context, userID string, amount int, reason string) (*AwardResult, error)

	// GetProgression reports the user's total XP, current level and the XP
	// still needed for the next one.
	GetProgression(ctx context.Context, userID string) (*ProgressionInfo, error)

	// ListAchievements returns the full badge catalogue with the user's
	// unlock state.
	ListAchievements(ctx context.Context, userID string) ([]AchievementStatus, error)
}

// AchievementStatus pairs a catalogue entry with one user's unlock state.
type AchievementStatus struct {
	Achievement domain.Achievement
	Unlocked    bool
}

// AwardResult is the outcome of one XP award.
type AwardResult struct {
	UserID     string
	AwardedXP  int
	TotalXP    int
	Level      domain.Level
	LeveledUp  bool
	NewUnlocks []domain.Achievement
	StreakDays int
}

// ProgressionInfo is a read-only progression snapshot.
type ProgressionInfo struct {
	UserID     string
	TotalXP    int
	Level      domain.Level
	NextLevel  *domain.Level
	XPToNext   int
	StreakDays int
}

type progressionServiceImpl struct {
	userRepo        domain.UserRepository
	levelRepo       domain.LevelRepository
	achievementRepo domain.AchievementRepository
	leaderboard     domain.LeaderboardStore
	publisher       domain.EventPublisher
	cacheStore      domain.Cache
	txManager       domain.TransactionManager
	clock           domain.Clock
}

// NewProgressionService creates a new instance of ProgressionService.
func NewProgressionService(
	userRepo domain.UserRepository,
	levelRepo domain.LevelRepository,
	achievementRepo domain.AchievementRepository,
	leaderboard domain.LeaderboardStore,
	publisher domain.EventPublisher,
	cacheStore domain.Cache,
	txManager domain.TransactionManager,
	clock domain.Clock,
) ProgressionService {
	return &progressionServiceImpl{
		userRepo:        userRepo,
		levelRepo:       levelRepo,
		achievementRepo: achievementRepo,
		leaderboard:     leaderboard,
		publisher:       publisher,
		cacheStore:      cacheStore,
		txManager:       txManager,
		clock:           clock,
	}
}

// levelLadder returns the full level table, cached because it is immutable
// reference data read on every award.
func (s *progressionServiceImpl) levelLadder(ctx context.Context) ([]domain.Level, error) {
	key := cache.GenerateCacheKey("progression", "levels", "all")

	if s.cacheStore != nil {
		if cached, err := s.cacheStore.Get(ctx, key); err == nil {
			var levels []domain.Level
			if err := json.Unmarshal([]byte(cached), &levels); err == nil && len(levels) > 0 {
				return levels, nil
			}
		} else if !errors.Is(err, domain.ErrCacheMiss) {
			logger.Get().Warn("Level ladder cache read failed", zap.Error(err))
		}
	}

	levels, err := s.levelRepo.GetAllLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}
	if len(levels) == 0 {
		return nil, domain.NewNotFoundError("no levels defined")
	}

	if s.cacheStore != nil {
		if payload, err := json.Marshal(levels); err == nil {
			if err := s.cacheStore.Set(ctx, key, string(payload), levelLadderCacheTTL); err != nil {
				logger.Get().Warn("Level ladder cache write failed", zap.Error(err))
			}
		}
	}
	return levels, nil
}

func (s *progressionServiceImpl) AwardXP(ctx context.Context, userID string, amount int, reason string) (*AwardResult, error) {
	appLogger := logger.Get()

	if amount <= 0 {
		return nil, domain.NewInvalidInputError("xp amount must be positive")
	}

	levels, err := s.levelLadder(ctx)
	if err != nil {
		return nil, err
	}

	var result *AwardResult
	now := s.clock.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		user, err := s.userRepo.GetUserByID(txCtx, userID)
		if err != nil {
			return fmt.Errorf("failed to fetch user: %w", err)
		}
		if user == nil {
			return domain.NewNotFoundError(fmt.Sprintf("user %s not found", userID))
		}

		levelBefore, err := domain.ResolveLevel(user.TotalXP, levels)
		if err != nil {
			return err
		}

		newTotal, err := s.userRepo.AddXP(txCtx, userID, amount)
		if err != nil {
			return err
		}

		levelAfter, err := domain.ResolveLevel(newTotal, levels)
		if err != nil {
			return err
		}

		user.TotalXP = newTotal
		user.TouchStreak(now)
		if err := s.userRepo.UpdateUser(txCtx, user); err != nil {
			return err
		}

		unlocks, err := s.evaluateAchievements(txCtx, user, now)
		if err != nil {
			return err
		}

		result = &AwardResult{
			UserID:     userID,
			AwardedXP:  amount,
			TotalXP:    newTotal,
			Level:      levelAfter,
			LeveledUp:  levelAfter.Number > levelBefore.Number,
			NewUnlocks: unlocks,
			StreakDays: user.StreakDays,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Side effects after commit: the ranking and notifications must not roll
	// the award back when Redis is unreachable.
	if s.leaderboard != nil {
		if err := s.leaderboard.IncrementScore(ctx, cache.XPLeaderboardKey, userID, amount); err != nil {
			appLogger.Warn("Leaderboard update failed", zap.String("userID", userID), zap.Error(err))
		}
	}
	if s.publisher != nil && result.LeveledUp {
		if err := s.publisher.Publish(ctx, domain.NewLevelUpEvent(userID, result.Level, now)); err != nil {
			appLogger.Warn("Level-up event publish failed", zap.String("userID", userID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		for _, a := range result.NewUnlocks {
			if err := s.publisher.Publish(ctx, domain.NewAchievementUnlockedEvent(userID, a, now)); err != nil {
				appLogger.Warn("Achievement event publish failed", zap.String("userID", userID), zap.Error(err))
			}
		}
	}

	appLogger.Info("XP awarded",
		zap.String("userID", userID),
		zap.Int("amount", amount),
		zap.String("reason", reason),
		zap.Int("totalXP", result.TotalXP),
		zap.Int("level", result.Level.Number),
		zap.Bool("leveledUp", result.LeveledUp))
	return result, nil
}

// evaluateAchievements unlocks every achievement whose criterion the user now
// satisfies. A concurrent unlock of the same pair is treated as already done.
func (s *progressionServiceImpl) evaluateAchievements(ctx context.Context, user *domain.User, now time.Time) ([]domain.Achievement, error) {
	if s.achievementRepo == nil {
		return nil, nil
	}

	all, err := s.achievementRepo.GetAllAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	unlocked, err := s.achievementRepo.GetUnlockedIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}

	var gradedCount int
	var gradedLoaded bool

	var newUnlocks []domain.Achievement
	for _, a := range all {
		if unlocked[a.ID] {
			continue
		}

		var value int
		switch a.Criterion {
		case domain.CriterionTotalXP:
			value = user.TotalXP
		case domain.CriterionStreakDays:
			value = user.StreakDays
		case domain.CriterionTestsGraded:
			if !gradedLoaded {
				gradedCount, err = s.achievementRepo.CountGradedAttempts(ctx, user.ID)
				if err != nil {
					return nil, fmt.Errorf("failed to count graded attempts: %w", err)
				}
				gradedLoaded = true
			}
			value = gradedCount
		default:
			continue
		}

		if !a.Unlocked(value) {
			continue
		}

		err := s.achievementRepo.RecordUnlock(ctx, &domain.UserAchievement{
			UserID:        user.ID,
			AchievementID: a.ID,
			UnlockedAt:    now,
		})
		if err != nil {
			var domainErr *domain.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == domain.CodeConflict {
				continue
			}
			return nil, err
		}
		newUnlocks = append(newUnlocks, a)
	}
	return newUnlocks, nil
}

func (s *progressionServiceImpl) ListAchievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	if s.achievementRepo == nil {
		return nil, nil
	}

	all, err := s.achievementRepo.GetAllAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	unlocked, err := s.achievementRepo.GetUnlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}

	statuses := make([]AchievementStatus, len(all))
	for i, a := range all {
		statuses[i] = AchievementStatus{Achievement: a, Unlocked: unlocked[a.ID]}
	}
	return statuses, nil
}

func (s *progressionServiceImpl) GetProgression(ctx context.Context, userID string) (*ProgressionInfo, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	if user == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("user %s not found", userID))
	}

	levels, err := s.levelLadder(ctx)
	if err != nil {
		return nil, err
	}

	current, err := domain.ResolveLevel(user.TotalXP, levels)
	if err != nil {
		return nil, err
	}

	info := &ProgressionInfo{
		UserID:     userID,
		TotalXP:    user.TotalXP,
		Level:      current,
		StreakDays: user.StreakDays,
	}

	for i := range levels {
		if levels[i].Number == current.Number+1 {
			next := levels[i]
			info.NextLevel = &next
			info.XPToNext = next.ExpRequired - user.TotalXP
			break
		}
	}
	return info, nil
}
