package domain

import (
	"context"
	"strings"
	"time"
)

// TestStatus is the administrative state of a test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "draft"
	TestStatusScheduled TestStatus = "scheduled"
	TestStatusActive    TestStatus = "active"
	TestStatusClosed    TestStatus = "closed"
	TestStatusArchived  TestStatus = "archived"
)

// CanTransitionTo reports whether a test may move to the target status.
// Forward moves follow draft -> scheduled -> active -> closed -> archived;
// archiving is additionally allowed from any state.
func (s TestStatus) CanTransitionTo(target TestStatus) bool {
	if target == TestStatusArchived {
		return s != TestStatusArchived
	}
	switch s {
	case TestStatusDraft:
		return target == TestStatusScheduled
	case TestStatusScheduled:
		return target == TestStatusActive || target == TestStatusClosed
	case TestStatusActive:
		return target == TestStatusClosed
	default:
		return false
	}
}

// ItemKind tags the polymorphic test item reference. An explicit enum keeps
// grading exhaustive instead of relying on runtime type discovery.
type ItemKind string

const (
	ItemKindQuizQuestion    ItemKind = "quiz_question"
	ItemKindEssayQuestion   ItemKind = "essay_question"
	ItemKindCodingChallenge ItemKind = "coding_challenge"
)

// AutoGradable reports whether submissions of this kind are scored by
// answer-key comparison rather than by a human grader.
func (k ItemKind) AutoGradable() bool {
	switch k {
	case ItemKindQuizQuestion, ItemKindCodingChallenge:
		return true
	default:
		return false
	}
}

// Test is a teacher-authored exam over a set of items.
type Test struct {
	ID                     string
	TeacherID              string
	CourseID               string
	Title                  string
	Slug                   string
	DurationMinutes        int
	TotalPoints            int
	StartTime              *time.Time
	EndTime                *time.Time
	Status                 TestStatus
	ShuffleQuestions       bool
	ShowResultsImmediately bool
	AllowReview            bool
	MaxAttempts            int
	CreatedAt              time.Time
	UpdatedAt              time.Time
	DeletedAt              *time.Time
}

// NewTest creates a draft test owned by a teacher.
func NewTest(teacherID, title, slug string, maxAttempts int, now time.Time) *Test {
	return &Test{
		TeacherID:   teacherID,
		Title:       title,
		Slug:        slug,
		Status:      TestStatusDraft,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate validates the test
func (t *Test) Validate() error {
	if t.TeacherID == "" {
		return NewInvalidInputError("teacher ID is required")
	}
	if t.Title == "" {
		return NewInvalidInputError("title is required")
	}
	if t.Slug == "" {
		return NewInvalidInputError("slug is required")
	}
	if t.MaxAttempts < 1 {
		return NewInvalidInputError("max_attempts must be at least 1")
	}
	if t.StartTime != nil && t.EndTime != nil && t.EndTime.Before(*t.StartTime) {
		return NewInvalidInputError("end_time must not precede start_time")
	}
	return nil
}

// IsOpenForAttempt reports whether a student may start or continue an attempt
// at the given time. Availability is derived: the persisted status must be
// scheduled or active AND the current time must fall inside the configured
// window. An absent bound leaves that side open.
func (t *Test) IsOpenForAttempt(now time.Time) bool {
	if t.Status != TestStatusScheduled && t.Status != TestStatusActive {
		return false
	}
	if t.StartTime != nil && now.Before(*t.StartTime) {
		return false
	}
	if t.EndTime != nil && now.After(*t.EndTime) {
		return false
	}
	return true
}

// TestItem is one gradable unit inside a test, referencing its question or
// challenge through the kind tag plus a typed ID.
type TestItem struct {
	ID        string
	TestID    string
	Kind      ItemKind
	ItemRefID string
	Position  int
	Points    int
}

// AnswerKey holds what a submission is compared against for auto-gradable
// kinds. Empty for essay items.
type AnswerKey struct {
	Expected     string
	AutoGradable bool
}

// Matches compares a submitted answer to the key. Quiz answers are compared
// case-insensitively; coding output must match after trimming surrounding
// whitespace.
func (k AnswerKey) Matches(kind ItemKind, answer string) bool {
	switch kind {
	case ItemKindQuizQuestion:
		return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(k.Expected))
	case ItemKindCodingChallenge:
		return strings.TrimSpace(answer) == strings.TrimSpace(k.Expected)
	default:
		return false
	}
}

// AttemptStatus is the lifecycle state of one student attempt.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
	AttemptStatusGraded     AttemptStatus = "graded"
	AttemptStatusAbandoned  AttemptStatus = "abandoned"
)

// TestAttempt is one student's numbered run at a test. Attempts are never
// physically deleted.
type TestAttempt struct {
	ID               string
	TestID           string
	StudentID        string
	AttemptNumber    int
	StartedAt        time.Time
	SubmittedAt      *time.Time
	TimeSpentMinutes int
	TotalScore       int
	Status           AttemptStatus
	UpdatedAt        time.Time
}

// Deadline returns the moment the attempt runs out of time, considering both
// the test duration and its end window. The zero time means no deadline.
func (a *TestAttempt) Deadline(test *Test) time.Time {
	var deadline time.Time
	if test.DurationMinutes > 0 {
		deadline = a.StartedAt.Add(time.Duration(test.DurationMinutes) * time.Minute)
	}
	if test.EndTime != nil && (deadline.IsZero() || test.EndTime.Before(deadline)) {
		deadline = *test.EndTime
	}
	return deadline
}

// IsExpired reports whether an in-progress attempt has run past its deadline.
func (a *TestAttempt) IsExpired(test *Test, now time.Time) bool {
	if a.Status != AttemptStatusInProgress {
		return false
	}
	deadline := a.Deadline(test)
	return !deadline.IsZero() && now.After(deadline)
}

// TestItemSubmission is the student's answer to one item of one attempt.
// Score and IsCorrect stay nil until graded (immediately for auto-gradable
// kinds, by a teacher for essays).
type TestItemSubmission struct {
	ID         string
	AttemptID  string
	TestItemID string
	Answer     string
	Score      *int
	IsCorrect  *bool
	Feedback   string
	UpdatedAt  time.Time
}

// TestLeaderboardEntry is one row of a per-test ranking: the best score a
// student reached across their graded attempts.
type TestLeaderboardEntry struct {
	StudentID string
	BestScore int
}

// EssayQuestion is the prompt an essay item points at, with an optional
// grading rubric shown to teachers and fed to the essay assistant.
type EssayQuestion struct {
	ID       string
	Question string
	Rubric   string
}

// EssaySuggestion is advisory grading help produced by the essay assistant.
// It is never persisted as a score; only GradeSubmission records scores.
type EssaySuggestion struct {
	SuggestedScore int
	Feedback       string
}

// EssayAssistant proposes a score and feedback for an essay submission.
type EssayAssistant interface {
	SuggestGrade(ctx context.Context, question, answer string, maxPoints int) (*EssaySuggestion, error)
}

// TestRepository defines the interface for test, item and roster persistence.
type TestRepository interface {
	GetTestByID(ctx context.Context, id string) (*Test, error)
	GetTestBySlug(ctx context.Context, slug string) (*Test, error)

	// GetOpenTestIDs returns the ids of tests students may currently be
	// taking, for the attempt-expiry sweeper.
	GetOpenTestIDs(ctx context.Context) ([]string, error)
	SaveTest(ctx context.Context, test *Test) error
	UpdateTestStatus(ctx context.Context, testID string, from, to TestStatus, now time.Time) error

	GetItemsByTestID(ctx context.Context, testID string) ([]TestItem, error)
	GetItemByID(ctx context.Context, itemID string) (*TestItem, error)
	SaveItem(ctx context.Context, item *TestItem) error

	// ResolveAnswerKey loads the referenced question or challenge and returns
	// what submissions are graded against.
	ResolveAnswerKey(ctx context.Context, item *TestItem) (*AnswerKey, error)
	GetEssayQuestion(ctx context.Context, id string) (*EssayQuestion, error)

	IsStudentAssigned(ctx context.Context, testID, studentID string) (bool, error)
	AssignStudent(ctx context.Context, testID, studentID string) error
}

// AttemptRepository defines the interface for attempt and submission
// persistence. CreateAttempt relies on the unique
// (test_id, student_id, attempt_number) constraint and reports a CONFLICT
// DomainError on collision so the service can retry.
type AttemptRepository interface {
	GetAttemptByID(ctx context.Context, id string) (*TestAttempt, error)
	GetAttemptsByTestAndStudent(ctx context.Context, testID, studentID string) ([]TestAttempt, error)
	GetExpiredInProgressAttempts(ctx context.Context, testID string) ([]TestAttempt, error)
	CreateAttempt(ctx context.Context, attempt *TestAttempt) error
	UpdateAttempt(ctx context.Context, attempt *TestAttempt) error

	// GetBestScoresByTest ranks students by their best graded attempt.
	// Abandoned and unfinished attempts never contribute.
	GetBestScoresByTest(ctx context.Context, testID string, limit int) ([]TestLeaderboardEntry, error)

	GetSubmission(ctx context.Context, attemptID, itemID string) (*TestItemSubmission, error)
	GetSubmissionByID(ctx context.Context, id string) (*TestItemSubmission, error)
	GetSubmissionsByAttempt(ctx context.Context, attemptID string) ([]TestItemSubmission, error)
	UpsertSubmission(ctx context.Context, submission *TestItemSubmission) error
}
