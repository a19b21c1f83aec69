package service

import (
	"context"
	"time"

	"skillquest/internal/domain"

	"github.com/stretchr/testify/mock"
)

// fakeClock pins the time source for deterministic scheduling assertions.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- MockUserRepository ---
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) AddXP(ctx context.Context, userID string, delta int) (int, error) {
	args := m.Called(ctx, userID, delta)
	return args.Int(0), args.Error(1)
}

// --- MockLevelRepository ---
type MockLevelRepository struct {
	mock.Mock
}

func (m *MockLevelRepository) GetAllLevels(ctx context.Context) ([]domain.Level, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Level), args.Error(1)
}

func (m *MockLevelRepository) GetLevelByNumber(ctx context.Context, number int) (*domain.Level, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Level), args.Error(1)
}

func (m *MockLevelRepository) SaveLevel(ctx context.Context, level *domain.Level) error {
	args := m.Called(ctx, level)
	return args.Error(0)
}

// --- MockAchievementRepository ---
type MockAchievementRepository struct {
	mock.Mock
}

func (m *MockAchievementRepository) GetAllAchievements(ctx context.Context) ([]domain.Achievement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Achievement), args.Error(1)
}

func (m *MockAchievementRepository) GetUnlockedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *MockAchievementRepository) RecordUnlock(ctx context.Context, unlock *domain.UserAchievement) error {
	args := m.Called(ctx, unlock)
	return args.Error(0)
}

func (m *MockAchievementRepository) CountGradedAttempts(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// --- MockFlashcardRepository ---
type MockFlashcardRepository struct {
	mock.Mock
}

func (m *MockFlashcardRepository) GetFlashcardByID(ctx context.Context, id string) (*domain.Flashcard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) GetDueFlashcards(ctx context.Context, userID string, now time.Time, limit int) ([]domain.Flashcard, error) {
	args := m.Called(ctx, userID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) SaveFlashcard(ctx context.Context, card *domain.Flashcard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

// --- MockFlashcardProgressRepository ---
type MockFlashcardProgressRepository struct {
	mock.Mock
}

func (m *MockFlashcardProgressRepository) GetProgress(ctx context.Context, userID, flashcardID string) (*domain.FlashcardProgress, error) {
	args := m.Called(ctx, userID, flashcardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlashcardProgress), args.Error(1)
}

func (m *MockFlashcardProgressRepository) CreateProgress(ctx context.Context, progress *domain.FlashcardProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockFlashcardProgressRepository) UpdateProgress(ctx context.Context, progress *domain.FlashcardProgress, priorUpdatedAt time.Time) error {
	args := m.Called(ctx, progress, priorUpdatedAt)
	return args.Error(0)
}

// --- MockTestRepository ---
type MockTestRepository struct {
	mock.Mock
}

func (m *MockTestRepository) GetTestByID(ctx context.Context, id string) (*domain.Test, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Test), args.Error(1)
}

func (m *MockTestRepository) GetTestBySlug(ctx context.Context, slug string) (*domain.Test, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Test), args.Error(1)
}

func (m *MockTestRepository) GetOpenTestIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockTestRepository) SaveTest(ctx context.Context, test *domain.Test) error {
	args := m.Called(ctx, test)
	return args.Error(0)
}

func (m *MockTestRepository) UpdateTestStatus(ctx context.Context, testID string, from, to domain.TestStatus, now time.Time) error {
	args := m.Called(ctx, testID, from, to, now)
	return args.Error(0)
}

func (m *MockTestRepository) GetItemsByTestID(ctx context.Context, testID string) ([]domain.TestItem, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TestItem), args.Error(1)
}

func (m *MockTestRepository) GetItemByID(ctx context.Context, itemID string) (*domain.TestItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestItem), args.Error(1)
}

func (m *MockTestRepository) SaveItem(ctx context.Context, item *domain.TestItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockTestRepository) ResolveAnswerKey(ctx context.Context, item *domain.TestItem) (*domain.AnswerKey, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnswerKey), args.Error(1)
}

func (m *MockTestRepository) GetEssayQuestion(ctx context.Context, id string) (*domain.EssayQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EssayQuestion), args.Error(1)
}

func (m *MockTestRepository) IsStudentAssigned(ctx context.Context, testID, studentID string) (bool, error) {
	args := m.Called(ctx, testID, studentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTestRepository) AssignStudent(ctx context.Context, testID, studentID string) error {
	args := m.Called(ctx, testID, studentID)
	return args.Error(0)
}

// --- MockAttemptRepository ---
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) GetAttemptByID(ctx context.Context, id string) (*domain.TestAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetAttemptsByTestAndStudent(ctx context.Context, testID, studentID string) ([]domain.TestAttempt, error) {
	args := m.Called(ctx, testID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetExpiredInProgressAttempts(ctx context.Context, testID string) ([]domain.TestAttempt, error) {
	args := m.Called(ctx, testID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TestAttempt), args.Error(1)
}

func (m *MockAttemptRepository) CreateAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) UpdateAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetBestScoresByTest(ctx context.Context, testID string, limit int) ([]domain.TestLeaderboardEntry, error) {
	args := m.Called(ctx, testID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TestLeaderboardEntry), args.Error(1)
}

func (m *MockAttemptRepository) GetSubmission(ctx context.Context, attemptID, itemID string) (*domain.TestItemSubmission, error) {
	args := m.Called(ctx, attemptID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestItemSubmission), args.Error(1)
}

func (m *MockAttemptRepository) GetSubmissionByID(ctx context.Context, id string) (*domain.TestItemSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestItemSubmission), args.Error(1)
}

func (m *MockAttemptRepository) GetSubmissionsByAttempt(ctx context.Context, attemptID string) ([]domain.TestItemSubmission, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TestItemSubmission), args.Error(1)
}

func (m *MockAttemptRepository) UpsertSubmission(ctx context.Context, submission *domain.TestItemSubmission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

// --- MockLeaderboardStore ---
type MockLeaderboardStore struct {
	mock.Mock
}

func (m *MockLeaderboardStore) IncrementScore(ctx context.Context, board string, userID string, delta int) error {
	args := m.Called(ctx, board, userID, delta)
	return args.Error(0)
}

func (m *MockLeaderboardStore) SetScore(ctx context.Context, board string, userID string, score int) error {
	args := m.Called(ctx, board, userID, score)
	return args.Error(0)
}

func (m *MockLeaderboardStore) Top(ctx context.Context, board string, limit int) ([]domain.LeaderboardEntry, error) {
	args := m.Called(ctx, board, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LeaderboardEntry), args.Error(1)
}

func (m *MockLeaderboardStore) Rank(ctx context.Context, board string, userID string) (int, error) {
	args := m.Called(ctx, board, userID)
	return args.Int(0), args.Error(1)
}

// --- MockEventPublisher ---
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// --- MockCache ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- MockEssayAssistant ---
type MockEssayAssistant struct {
	mock.Mock
}

func (m *MockEssayAssistant) SuggestGrade(ctx context.Context, question, answer string, maxPoints int) (*domain.EssaySuggestion, error) {
	args := m.Called(ctx, question, answer, maxPoints)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EssaySuggestion), args.Error(1)
}
