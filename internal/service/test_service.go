package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skillquest/internal/domain"
	"skillquest/internal/logger"
	"skillquest/internal/util"

	"go.uber.org/zap"
)

// TestService manages the test lifecycle from authoring through grading.
type TestService interface {
	// Teacher operations.
	CreateTest(ctx context.Context, teacherID string, test *domain.Test) (*domain.Test, error)
	AddItem(ctx context.Context, teacherID, testID string, item *domain.TestItem) (*domain.TestItem, error)
	AssignStudent(ctx context.Context, teacherID, testID, studentID string) error
	ScheduleTest(ctx context.Context, teacherID, testID string) error
	ActivateTest(ctx context.Context, teacherID, testID string) error
	CloseTest(ctx context.Context, teacherID, testID string) error
	ArchiveTest(ctx context.Context, teacherID, testID string) error

	// Student operations.
	GetTest(ctx context.Context, testID string) (*domain.Test, []domain.TestItem, error)
	// GetTestLeaderboard ranks students by their best graded score.
	GetTestLeaderboard(ctx context.Context, testID string, limit int) ([]domain.TestLeaderboardEntry, error)
	StartAttempt(ctx context.Context, testID, studentID string) (*domain.TestAttempt, error)
	SubmitItemAnswer(ctx context.Context, attemptID, studentID, itemID, answer string) (*domain.TestItemSubmission, error)
	SubmitTest(ctx context.Context, attemptID, studentID string) (*domain.TestAttempt, error)

	// Grading operations.
	GradeSubmission(ctx context.Context, graderID, submissionID string, score int, feedback string) (*domain.TestItemSubmission, error)
	SuggestEssayGrade(ctx context.Context, submissionID string) (*domain.EssaySuggestion, error)

	// ExpireOverdueAttempts abandons in-progress attempts that ran past
	// their deadline. The sweeper calls it periodically.
	ExpireOverdueAttempts(ctx context.Context, testID string) (int, error)
}

type testServiceImpl struct {
	testRepo    domain.TestRepository
	attemptRepo domain.AttemptRepository
	progression ProgressionService
	assistant   domain.EssayAssistant
	txManager   domain.TransactionManager
	clock       domain.Clock
}

// NewTestService creates a new instance of TestService. assistant may be nil
// when the essay assistant is disabled.
func NewTestService(
	testRepo domain.TestRepository,
	attemptRepo domain.AttemptRepository,
	progression ProgressionService,
	assistant domain.EssayAssistant,
	txManager domain.TransactionManager,
	clock domain.Clock,
) TestService {
	return &testServiceImpl{
		testRepo:    testRepo,
		attemptRepo: attemptRepo,
		progression: progression,
		assistant:   assistant,
		txManager:   txManager,
		clock:       clock,
	}
}

func (s *testServiceImpl) CreateTest(ctx context.Context, teacherID string, test *domain.Test) (*domain.Test, error) {
	test.ID = util.NewULID()
	test.TeacherID = teacherID
	test.Status = domain.TestStatusDraft
	now := s.clock.Now()
	test.CreatedAt = now
	test.UpdatedAt = now
	if test.MaxAttempts < 1 {
		test.MaxAttempts = 1
	}
	if err := test.Validate(); err != nil {
		return nil, err
	}
	if err := s.testRepo.SaveTest(ctx, test); err != nil {
		return nil, err
	}
	logger.Get().Info("Test created",
		zap.String("testID", test.ID),
		zap.String("teacherID", teacherID),
		zap.String("slug", test.Slug))
	return test, nil
}

// ownedTest loads a test and checks the caller authored it.
func (s *testServiceImpl) ownedTest(ctx context.Context, teacherID, testID string) (*domain.Test, error) {
	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("test %s not found", testID))
	}
	if test.TeacherID != teacherID {
		return nil, domain.NewError(domain.CodeForbidden, "test belongs to another teacher", nil)
	}
	return test, nil
}

func (s *testServiceImpl) AddItem(ctx context.Context, teacherID, testID string, item *domain.TestItem) (*domain.TestItem, error) {
	test, err := s.ownedTest(ctx, teacherID, testID)
	if err != nil {
		return nil, err
	}
	// Items are frozen once the test leaves draft; attempts may already
	// reference the current set.
	if test.Status != domain.TestStatusDraft {
		return nil, domain.NewConflictError("items can only be added to a draft test")
	}
	if item.Points < 0 {
		return nil, domain.NewInvalidInputError("points must not be negative")
	}
	if item.ItemRefID == "" {
		return nil, domain.NewInvalidInputError("item reference is required")
	}
	switch item.Kind {
	case domain.ItemKindQuizQuestion, domain.ItemKindEssayQuestion, domain.ItemKindCodingChallenge:
	default:
		return nil, domain.NewInvalidInputError(fmt.Sprintf("unknown item kind %q", item.Kind))
	}

	item.ID = util.NewULID()
	item.TestID = testID
	if item.Position == 0 {
		existing, err := s.testRepo.GetItemsByTestID(ctx, testID)
		if err != nil {
			return nil, err
		}
		item.Position = len(existing) + 1
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.testRepo.SaveItem(txCtx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *testServiceImpl) AssignStudent(ctx context.Context, teacherID, testID, studentID string) error {
	if _, err := s.ownedTest(ctx, teacherID, testID); err != nil {
		return err
	}
	return s.testRepo.AssignStudent(ctx, testID, studentID)
}

// transition moves an owned test between statuses after checking the move is
// legal. The repository's compare-and-swap closes the race with concurrent
// transitions.
func (s *testServiceImpl) transition(ctx context.Context, teacherID, testID string, to domain.TestStatus) error {
	test, err := s.ownedTest(ctx, teacherID, testID)
	if err != nil {
		return err
	}
	if test.Status == to {
		if to == domain.TestStatusClosed {
			return domain.NewAlreadyClosedError(testID)
		}
		return domain.NewConflictError(fmt.Sprintf("test is already %s", to))
	}
	if !test.Status.CanTransitionTo(to) {
		return domain.NewConflictError(fmt.Sprintf("cannot move test from %s to %s", test.Status, to))
	}
	if err := s.testRepo.UpdateTestStatus(ctx, testID, test.Status, to, s.clock.Now()); err != nil {
		return err
	}
	logger.Get().Info("Test status changed",
		zap.String("testID", testID),
		zap.String("from", string(test.Status)),
		zap.String("to", string(to)))
	return nil
}

func (s *testServiceImpl) ScheduleTest(ctx context.Context, teacherID, testID string) error {
	if _, err := s.ownedTest(ctx, teacherID, testID); err != nil {
		return err
	}
	// A test with no items cannot be taken; catch it before it is visible to
	// students.
	items, err := s.testRepo.GetItemsByTestID(ctx, testID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return domain.NewInvalidInputError("test has no items")
	}
	return s.transition(ctx, teacherID, testID, domain.TestStatusScheduled)
}

func (s *testServiceImpl) ActivateTest(ctx context.Context, teacherID, testID string) error {
	return s.transition(ctx, teacherID, testID, domain.TestStatusActive)
}

func (s *testServiceImpl) CloseTest(ctx context.Context, teacherID, testID string) error {
	if err := s.transition(ctx, teacherID, testID, domain.TestStatusClosed); err != nil {
		return err
	}
	// Closing the window abandons whatever is still running.
	count, err := s.ExpireOverdueAttempts(ctx, testID)
	if err != nil {
		logger.Get().Error("Failed to abandon attempts on close",
			zap.String("testID", testID), zap.Error(err))
		return nil
	}
	if count > 0 {
		logger.Get().Info("Abandoned running attempts on close",
			zap.String("testID", testID), zap.Int("count", count))
	}
	return nil
}

func (s *testServiceImpl) ArchiveTest(ctx context.Context, teacherID, testID string) error {
	return s.transition(ctx, teacherID, testID, domain.TestStatusArchived)
}

func (s *testServiceImpl) GetTest(ctx context.Context, testID string) (*domain.Test, []domain.TestItem, error) {
	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	if test == nil {
		return nil, nil, domain.NewNotFoundError(fmt.Sprintf("test %s not found", testID))
	}
	items, err := s.testRepo.GetItemsByTestID(ctx, testID)
	if err != nil {
		return nil, nil, err
	}
	return test, items, nil
}

func (s *testServiceImpl) StartAttempt(ctx context.Context, testID, studentID string) (*domain.TestAttempt, error) {
	appLogger := logger.Get()
	now := s.clock.Now()

	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("test %s not found", testID))
	}
	if !test.IsOpenForAttempt(now) {
		return nil, domain.NewTestNotOpenError(testID)
	}

	assigned, err := s.testRepo.IsStudentAssigned(ctx, testID, studentID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, domain.NewNotAssignedError(testID, studentID)
	}

	// Two tries: a concurrent start from the same student can take our
	// attempt number, in which case we recompute once.
	for try := 0; try < 2; try++ {
		attempts, err := s.attemptRepo.GetAttemptsByTestAndStudent(ctx, testID, studentID)
		if err != nil {
			return nil, err
		}

		// Abandoned attempts never count toward the limit, but their
		// numbers stay taken.
		highest := 0
		active := 0
		for i := range attempts {
			a := &attempts[i]
			if a.Status == domain.AttemptStatusInProgress {
				if !a.IsExpired(test, now) {
					// Starting again resumes the running attempt.
					return a, nil
				}
				// Ran out of time; settle it so it stops counting.
				if err := s.expireAttempt(ctx, a); err != nil {
					return nil, err
				}
			}
			if a.Status != domain.AttemptStatusAbandoned {
				active++
			}
			if a.AttemptNumber > highest {
				highest = a.AttemptNumber
			}
		}
		if active >= test.MaxAttempts {
			return nil, domain.NewAttemptLimitExceededError(testID, test.MaxAttempts)
		}

		attempt := &domain.TestAttempt{
			ID:            util.NewULID(),
			TestID:        testID,
			StudentID:     studentID,
			AttemptNumber: highest + 1,
			StartedAt:     now,
			Status:        domain.AttemptStatusInProgress,
			UpdatedAt:     now,
		}
		err = s.attemptRepo.CreateAttempt(ctx, attempt)
		if err == nil {
			appLogger.Info("Attempt started",
				zap.String("attemptID", attempt.ID),
				zap.String("testID", testID),
				zap.String("studentID", studentID),
				zap.Int("attemptNumber", attempt.AttemptNumber))
			return attempt, nil
		}
		var domainErr *domain.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != domain.CodeConflict {
			return nil, err
		}
	}
	return nil, domain.NewConflictError("could not allocate an attempt number, try again")
}

// openAttempt loads an attempt, checks ownership and that it is still
// running. An attempt past its deadline is abandoned on the spot and reported
// closed.
func (s *testServiceImpl) openAttempt(ctx context.Context, attemptID, studentID string) (*domain.TestAttempt, *domain.Test, error) {
	attempt, err := s.attemptRepo.GetAttemptByID(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt == nil {
		return nil, nil, domain.NewNotFoundError(fmt.Sprintf("attempt %s not found", attemptID))
	}
	if attempt.StudentID != studentID {
		return nil, nil, domain.NewError(domain.CodeForbidden, "attempt belongs to another student", nil)
	}

	test, err := s.testRepo.GetTestByID(ctx, attempt.TestID)
	if err != nil {
		return nil, nil, err
	}
	if test == nil {
		return nil, nil, domain.NewNotFoundError(fmt.Sprintf("test %s not found", attempt.TestID))
	}

	if attempt.Status != domain.AttemptStatusInProgress {
		return nil, nil, domain.NewAttemptClosedError(attemptID)
	}
	if attempt.IsExpired(test, s.clock.Now()) {
		if err := s.expireAttempt(ctx, attempt); err != nil {
			return nil, nil, err
		}
		return nil, nil, domain.NewAttemptClosedError(attemptID)
	}
	return attempt, test, nil
}

// expireAttempt abandons an in-progress attempt whose time ran out. Abandoned
// attempts are never scored, award no XP, and are excluded from leaderboard
// aggregation.
func (s *testServiceImpl) expireAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	attempt.Status = domain.AttemptStatusAbandoned
	attempt.TotalScore = 0
	attempt.UpdatedAt = s.clock.Now()
	if err := s.attemptRepo.UpdateAttempt(ctx, attempt); err != nil {
		return err
	}
	logger.Get().Info("Attempt abandoned on expiry",
		zap.String("attemptID", attempt.ID),
		zap.String("testID", attempt.TestID),
		zap.String("studentID", attempt.StudentID))
	return nil
}

func (s *testServiceImpl) SubmitItemAnswer(ctx context.Context, attemptID, studentID, itemID, answer string) (*domain.TestItemSubmission, error) {
	attempt, _, err := s.openAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}

	item, err := s.testRepo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.TestID != attempt.TestID {
		return nil, domain.NewItemNotInTestError(itemID, attempt.TestID)
	}

	// Resubmitting before the deadline overwrites the row in place, keeping
	// its id.
	existing, err := s.attemptRepo.GetSubmission(ctx, attemptID, itemID)
	if err != nil {
		return nil, err
	}
	submission := &domain.TestItemSubmission{
		ID:         util.NewULID(),
		AttemptID:  attemptID,
		TestItemID: itemID,
		Answer:     answer,
		UpdatedAt:  s.clock.Now(),
	}
	if existing != nil {
		submission.ID = existing.ID
	}

	// Objective kinds are scored on the spot; essays wait for a teacher.
	if item.Kind.AutoGradable() {
		key, err := s.testRepo.ResolveAnswerKey(ctx, item)
		if err != nil {
			return nil, err
		}
		correct := key.Matches(item.Kind, answer)
		score := 0
		if correct {
			score = item.Points
		}
		submission.Score = &score
		submission.IsCorrect = &correct
	}

	if err := s.attemptRepo.UpsertSubmission(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *testServiceImpl) SubmitTest(ctx context.Context, attemptID, studentID string) (*domain.TestAttempt, error) {
	attempt, _, err := s.openAttempt(ctx, attemptID, studentID)
	if err != nil {
		return nil, err
	}
	if err := s.finalizeAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

// finalizeAttempt handles an explicit submit: recomputes the auto-gradable
// scores and settles the attempt status. Graded when nothing is left for a
// human, submitted while essay scores are pending, abandoned when the student
// answered nothing.
func (s *testServiceImpl) finalizeAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	appLogger := logger.Get()
	now := s.clock.Now()

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		items, err := s.testRepo.GetItemsByTestID(txCtx, attempt.TestID)
		if err != nil {
			return err
		}
		submissions, err := s.attemptRepo.GetSubmissionsByAttempt(txCtx, attempt.ID)
		if err != nil {
			return err
		}

		itemsByID := make(map[string]*domain.TestItem, len(items))
		for i := range items {
			itemsByID[items[i].ID] = &items[i]
		}

		pendingEssays := 0
		totalScore := 0
		for i := range submissions {
			sub := &submissions[i]
			item, ok := itemsByID[sub.TestItemID]
			if !ok {
				continue
			}

			if !item.Kind.AutoGradable() {
				if sub.Score == nil {
					pendingEssays++
				} else {
					totalScore += *sub.Score
				}
				continue
			}

			key, err := s.testRepo.ResolveAnswerKey(txCtx, item)
			if err != nil {
				return err
			}
			correct := key.Matches(item.Kind, sub.Answer)
			score := 0
			if correct {
				score = item.Points
			}
			sub.Score = &score
			sub.IsCorrect = &correct
			sub.UpdatedAt = now
			if err := s.attemptRepo.UpsertSubmission(txCtx, sub); err != nil {
				return err
			}
			totalScore += score
		}

		switch {
		case len(submissions) == 0:
			attempt.Status = domain.AttemptStatusAbandoned
		case pendingEssays > 0:
			attempt.Status = domain.AttemptStatusSubmitted
		default:
			attempt.Status = domain.AttemptStatusGraded
		}

		submitted := now
		attempt.SubmittedAt = &submitted
		attempt.TimeSpentMinutes = int(now.Sub(attempt.StartedAt) / time.Minute)
		attempt.TotalScore = totalScore
		attempt.UpdatedAt = now
		if err := s.attemptRepo.UpdateAttempt(txCtx, attempt); err != nil {
			return err
		}

		appLogger.Info("Attempt finalized",
			zap.String("attemptID", attempt.ID),
			zap.String("status", string(attempt.Status)),
			zap.Int("totalScore", totalScore),
			zap.Int("pendingEssays", pendingEssays))

		if attempt.Status == domain.AttemptStatusGraded {
			s.awardAttemptXP(txCtx, attempt)
		}
		return nil
	})
}

// awardAttemptXP grants a point of XP per scored point once an attempt is
// fully graded.
func (s *testServiceImpl) awardAttemptXP(ctx context.Context, attempt *domain.TestAttempt) {
	if s.progression == nil || attempt.TotalScore <= 0 {
		return
	}
	if _, err := s.progression.AwardXP(ctx, attempt.StudentID, attempt.TotalScore, "test_graded"); err != nil {
		logger.Get().Warn("Attempt XP award failed",
			zap.String("attemptID", attempt.ID),
			zap.String("studentID", attempt.StudentID),
			zap.Error(err))
	}
}

func (s *testServiceImpl) GradeSubmission(ctx context.Context, graderID, submissionID string, score int, feedback string) (*domain.TestItemSubmission, error) {
	appLogger := logger.Get()
	now := s.clock.Now()

	submission, err := s.attemptRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("submission %s not found", submissionID))
	}

	attempt, err := s.attemptRepo.GetAttemptByID(ctx, submission.AttemptID)
	if err != nil {
		return nil, err
	}
	if attempt == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("attempt %s not found", submission.AttemptID))
	}
	if attempt.Status != domain.AttemptStatusSubmitted && attempt.Status != domain.AttemptStatusGraded {
		return nil, domain.NewConflictError("attempt has not been submitted yet")
	}

	test, err := s.testRepo.GetTestByID(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("test %s not found", attempt.TestID))
	}
	if test.TeacherID != graderID {
		return nil, domain.NewError(domain.CodeForbidden, "test belongs to another teacher", nil)
	}

	item, err := s.testRepo.GetItemByID(ctx, submission.TestItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("item %s not found", submission.TestItemID))
	}
	if score < 0 || score > item.Points {
		return nil, domain.NewScoreOutOfRangeError(score, item.Points)
	}

	wasGraded := attempt.Status == domain.AttemptStatusGraded

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		correct := score == item.Points
		submission.Score = &score
		submission.IsCorrect = &correct
		submission.Feedback = feedback
		submission.UpdatedAt = now
		if err := s.attemptRepo.UpsertSubmission(txCtx, submission); err != nil {
			return err
		}

		// Recompute the attempt total and settle its status once every
		// essay has a score.
		submissions, err := s.attemptRepo.GetSubmissionsByAttempt(txCtx, attempt.ID)
		if err != nil {
			return err
		}
		total := 0
		pending := 0
		for i := range submissions {
			if submissions[i].Score == nil {
				pending++
				continue
			}
			total += *submissions[i].Score
		}

		attempt.TotalScore = total
		if pending == 0 {
			attempt.Status = domain.AttemptStatusGraded
		}
		attempt.UpdatedAt = now
		if err := s.attemptRepo.UpdateAttempt(txCtx, attempt); err != nil {
			return err
		}

		if !wasGraded && attempt.Status == domain.AttemptStatusGraded {
			s.awardAttemptXP(txCtx, attempt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	appLogger.Info("Submission graded",
		zap.String("submissionID", submissionID),
		zap.String("graderID", graderID),
		zap.Int("score", score),
		zap.String("attemptStatus", string(attempt.Status)))
	return submission, nil
}

// SuggestEssayGrade asks the assistant for an advisory score. The suggestion
// is never persisted; only GradeSubmission records scores.
func (s *testServiceImpl) SuggestEssayGrade(ctx context.Context, submissionID string) (*domain.EssaySuggestion, error) {
	if s.assistant == nil {
		return nil, domain.NewAssistantUnavailableError(nil)
	}

	submission, err := s.attemptRepo.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if submission == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("submission %s not found", submissionID))
	}

	item, err := s.testRepo.GetItemByID(ctx, submission.TestItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("item %s not found", submission.TestItemID))
	}
	if item.Kind != domain.ItemKindEssayQuestion {
		return nil, domain.NewInvalidInputError("suggestions only apply to essay submissions")
	}

	question, err := s.testRepo.GetEssayQuestion(ctx, item.ItemRefID)
	if err != nil {
		return nil, err
	}
	if question == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("essay question %s not found", item.ItemRefID))
	}

	prompt := question.Question
	if question.Rubric != "" {
		prompt = fmt.Sprintf("%s\n\nGrading rubric: %s", question.Question, question.Rubric)
	}
	return s.assistant.SuggestGrade(ctx, prompt, submission.Answer, item.Points)
}

func (s *testServiceImpl) ExpireOverdueAttempts(ctx context.Context, testID string) (int, error) {
	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return 0, err
	}
	if test == nil {
		return 0, domain.NewNotFoundError(fmt.Sprintf("test %s not found", testID))
	}

	attempts, err := s.attemptRepo.GetExpiredInProgressAttempts(ctx, testID)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	count := 0
	closed := test.Status == domain.TestStatusClosed || test.Status == domain.TestStatusArchived
	for i := range attempts {
		attempt := &attempts[i]
		if !closed && !attempt.IsExpired(test, now) {
			continue
		}
		if err := s.expireAttempt(ctx, attempt); err != nil {
			logger.Get().Error("Failed to abandon expired attempt",
				zap.String("attemptID", attempt.ID), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

func (s *testServiceImpl) GetTestLeaderboard(ctx context.Context, testID string, limit int) ([]domain.TestLeaderboardEntry, error) {
	test, err := s.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("test %s not found", testID))
	}
	return s.attemptRepo.GetBestScoresByTest(ctx, testID, limit)
}
