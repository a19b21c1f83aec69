package service

import (
	"context"
	"testing"
	"time"

	"skillquest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func ladderFixture() []domain.Level {
	// Thresholds follow the cumulative curve: 0, 100, 383, 1501.
	return []domain.Level{
		{ID: "l1", Number: 1, Name: "Novice", ExpRequired: 0},
		{ID: "l2", Number: 2, Name: "Apprentice", ExpRequired: 100},
		{ID: "l3", Number: 3, Name: "Journeyman", ExpRequired: 383},
		{ID: "l4", Number: 4, Name: "Scholar", ExpRequired: 1501},
	}
}

func newProgressionFixture(t *testing.T) (*MockUserRepository, *MockLevelRepository, *MockAchievementRepository, *MockLeaderboardStore, *MockEventPublisher, ProgressionService, *fakeClock) {
	t.Helper()
	userRepo := new(MockUserRepository)
	levelRepo := new(MockLevelRepository)
	achievementRepo := new(MockAchievementRepository)
	leaderboard := new(MockLeaderboardStore)
	publisher := new(MockEventPublisher)
	clock := &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}

	svc := NewProgressionService(userRepo, levelRepo, achievementRepo, leaderboard, publisher, nil, passthroughTxManager{}, clock)
	return userRepo, levelRepo, achievementRepo, leaderboard, publisher, svc, clock
}

func TestAwardXP_LevelUp(t *testing.T) {
	userRepo, levelRepo, achievementRepo, leaderboard, publisher, svc, clock := newProgressionFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "user1", Email: "u@example.com", PasswordHash: "x", Role: domain.RoleStudent, TotalXP: 90}

	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)
	userRepo.On("GetUserByID", mock.Anything, "user1").Return(user, nil)
	userRepo.On("AddXP", mock.Anything, "user1", 50).Return(140, nil)
	userRepo.On("UpdateUser", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	achievementRepo.On("GetAllAchievements", mock.Anything).Return([]domain.Achievement{}, nil)
	achievementRepo.On("GetUnlockedIDs", mock.Anything, "user1").Return(map[string]bool{}, nil)
	leaderboard.On("IncrementScore", mock.Anything, mock.Anything, "user1", 50).Return(nil)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventLevelUp && e.UserID == "user1"
	})).Return(nil)

	result, err := svc.AwardXP(ctx, "user1", 50, "test")

	assert.NoError(t, err)
	assert.Equal(t, 140, result.TotalXP)
	assert.Equal(t, 2, result.Level.Number)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 1, result.StreakDays)
	assert.Equal(t, clock.now, *user.LastActivityAt)
	publisher.AssertExpectations(t)
	leaderboard.AssertExpectations(t)
}

func TestAwardXP_NoLevelUp(t *testing.T) {
	userRepo, levelRepo, achievementRepo, leaderboard, publisher, svc, _ := newProgressionFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "user1", Email: "u@example.com", PasswordHash: "x", Role: domain.RoleStudent, TotalXP: 100}

	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)
	userRepo.On("GetUserByID", mock.Anything, "user1").Return(user, nil)
	userRepo.On("AddXP", mock.Anything, "user1", 10).Return(110, nil)
	userRepo.On("UpdateUser", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	achievementRepo.On("GetAllAchievements", mock.Anything).Return([]domain.Achievement{}, nil)
	achievementRepo.On("GetUnlockedIDs", mock.Anything, "user1").Return(map[string]bool{}, nil)
	leaderboard.On("IncrementScore", mock.Anything, mock.Anything, "user1", 10).Return(nil)

	result, err := svc.AwardXP(ctx, "user1", 10, "test")

	assert.NoError(t, err)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 2, result.Level.Number)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAwardXP_UnlocksAchievement(t *testing.T) {
	userRepo, levelRepo, achievementRepo, leaderboard, publisher, svc, _ := newProgressionFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "user1", Email: "u@example.com", PasswordHash: "x", Role: domain.RoleStudent, TotalXP: 450}
	badge := domain.Achievement{ID: "a1", Name: "Halfway There", Criterion: domain.CriterionTotalXP, Threshold: 500}

	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)
	userRepo.On("GetUserByID", mock.Anything, "user1").Return(user, nil)
	userRepo.On("AddXP", mock.Anything, "user1", 60).Return(510, nil)
	userRepo.On("UpdateUser", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	achievementRepo.On("GetAllAchievements", mock.Anything).Return([]domain.Achievement{badge}, nil)
	achievementRepo.On("GetUnlockedIDs", mock.Anything, "user1").Return(map[string]bool{}, nil)
	achievementRepo.On("RecordUnlock", mock.Anything, mock.MatchedBy(func(u *domain.UserAchievement) bool {
		return u.UserID == "user1" && u.AchievementID == "a1"
	})).Return(nil)
	leaderboard.On("IncrementScore", mock.Anything, mock.Anything, "user1", 60).Return(nil)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventAchievementUnlocked
	})).Return(nil)

	result, err := svc.AwardXP(ctx, "user1", 60, "test")

	assert.NoError(t, err)
	assert.Len(t, result.NewUnlocks, 1)
	assert.Equal(t, "Halfway There", result.NewUnlocks[0].Name)
	achievementRepo.AssertExpectations(t)
}

func TestAwardXP_ConcurrentUnlockIsIgnored(t *testing.T) {
	userRepo, levelRepo, achievementRepo, leaderboard, _, svc, _ := newProgressionFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "user1", Email: "u@example.com", PasswordHash: "x", Role: domain.RoleStudent, TotalXP: 490}
	badge := domain.Achievement{ID: "a1", Name: "Halfway There", Criterion: domain.CriterionTotalXP, Threshold: 500}

	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)
	userRepo.On("GetUserByID", mock.Anything, "user1").Return(user, nil)
	userRepo.On("AddXP", mock.Anything, "user1", 20).Return(510, nil)
	userRepo.On("UpdateUser", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	achievementRepo.On("GetAllAchievements", mock.Anything).Return([]domain.Achievement{badge}, nil)
	achievementRepo.On("GetUnlockedIDs", mock.Anything, "user1").Return(map[string]bool{}, nil)
	achievementRepo.On("RecordUnlock", mock.Anything, mock.Anything).
		Return(domain.NewConflictError("achievement already unlocked"))
	leaderboard.On("IncrementScore", mock.Anything, mock.Anything, "user1", 20).Return(nil)

	result, err := svc.AwardXP(ctx, "user1", 20, "test")

	assert.NoError(t, err)
	assert.Empty(t, result.NewUnlocks)
}

func TestAwardXP_RejectsNonPositiveAmount(t *testing.T) {
	_, _, _, _, _, svc, _ := newProgressionFixture(t)

	_, err := svc.AwardXP(context.Background(), "user1", 0, "test")

	assert.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeInvalidInput, domainErr.Code)
}

func TestAwardXP_UserNotFound(t *testing.T) {
	userRepo, levelRepo, _, _, _, svc, _ := newProgressionFixture(t)
	ctx := context.Background()

	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)
	userRepo.On("GetUserByID", mock.Anything, "ghost").Return(nil, nil)

	_, err := svc.AwardXP(ctx, "ghost", 10, "test")

	assert.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, domainErr.Code)
}

func TestGetProgression(t *testing.T) {
	userRepo, levelRepo, _, _, _, svc, _ := newProgressionFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "user1", Email: "u@example.com", PasswordHash: "x", Role: domain.RoleStudent, TotalXP: 383, StreakDays: 4}
	userRepo.On("GetUserByID", ctx, "user1").Return(user, nil)
	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)

	info, err := svc.GetProgression(ctx, "user1")

	assert.NoError(t, err)
	// 383 XP lands exactly on the level 3 threshold.
	assert.Equal(t, 3, info.Level.Number)
	assert.NotNil(t, info.NextLevel)
	assert.Equal(t, 4, info.NextLevel.Number)
	assert.Equal(t, 1501-383, info.XPToNext)
	assert.Equal(t, 4, info.StreakDays)
}

func TestGetProgression_MaxLevelHasNoNext(t *testing.T) {
	userRepo, levelRepo, _, _, _, svc, _ := newProgressionFixture(t)
	ctx := context.Background()

	user := &domain.User{ID: "user1", Email: "u@example.com", PasswordHash: "x", Role: domain.RoleStudent, TotalXP: 9999}
	userRepo.On("GetUserByID", ctx, "user1").Return(user, nil)
	levelRepo.On("GetAllLevels", ctx).Return(ladderFixture(), nil)

	info, err := svc.GetProgression(ctx, "user1")

	assert.NoError(t, err)
	assert.Equal(t, 4, info.Level.Number)
	assert.Nil(t, info.NextLevel)
	assert.Equal(t, 0, info.XPToNext)
}
