package models

import (
	"database/sql"
	"time"
)

// Test represents a test row.
type Test struct {
	ID                     string         `db:"ID"` // ULID
	TeacherID              string         `db:"TEACHER_ID"`
	CourseID               sql.NullString `db:"COURSE_ID"`
	Title                  string         `db:"TITLE"`
	Slug                   string         `db:"SLUG"`
	DurationMinutes        sql.NullInt64  `db:"DURATION_MINUTES"`
	TotalPoints            int            `db:"TOTAL_POINTS"`
	StartTime              sql.NullTime   `db:"START_TIME"`
	EndTime                sql.NullTime   `db:"END_TIME"`
	Status                 string         `db:"STATUS"`
	ShuffleQuestions       bool           `db:"SHUFFLE_QUESTIONS"`
	ShowResultsImmediately bool           `db:"SHOW_RESULTS_IMMEDIATELY"`
	AllowReview            bool           `db:"ALLOW_REVIEW"`
	MaxAttempts            int            `db:"MAX_ATTEMPTS"`
	CreatedAt              time.Time      `db:"CREATED_AT"`
	UpdatedAt              time.Time      `db:"UPDATED_AT"`
	DeletedAt              sql.NullTime   `db:"DELETED_AT"`
}

// TestItem represents one gradable unit row with its tagged item reference.
type TestItem struct {
	ID        string `db:"ID"` // ULID
	TestID    string `db:"TEST_ID"`
	ItemKind  string `db:"ITEM_KIND"`
	ItemRefID string `db:"ITEM_REF_ID"`
	Position  int    `db:"POSITION"`
	Points    int    `db:"POINTS"`
}

// TestStudent is a roster row assigning a student to a test.
type TestStudent struct {
	TestID    string    `db:"TEST_ID"`
	StudentID string    `db:"STUDENT_ID"`
	CreatedAt time.Time `db:"CREATED_AT"`
}

// TestAttempt represents one student attempt row.
type TestAttempt struct {
	ID               string        `db:"ID"` // ULID
	TestID           string        `db:"TEST_ID"`
	StudentID        string        `db:"STUDENT_ID"`
	AttemptNumber    int           `db:"ATTEMPT_NUMBER"`
	StartedAt        time.Time     `db:"STARTED_AT"`
	SubmittedAt      sql.NullTime  `db:"SUBMITTED_AT"`
	TimeSpentMinutes sql.NullInt64 `db:"TIME_SPENT_MINUTES"`
	TotalScore       int           `db:"TOTAL_SCORE"`
	Status           string        `db:"STATUS"`
	UpdatedAt        time.Time     `db:"UPDATED_AT"`
}

// TestItemSubmission represents one answer row, unique per (attempt, item).
type TestItemSubmission struct {
	ID         string         `db:"ID"` // ULID
	AttemptID  string         `db:"TEST_ATTEMPT_ID"`
	TestItemID string         `db:"TEST_ITEM_ID"`
	Answer     string         `db:"ANSWER"`
	Score      sql.NullInt64  `db:"SCORE"`
	IsCorrect  sql.NullBool   `db:"IS_CORRECT"`
	Feedback   sql.NullString `db:"FEEDBACK"`
	UpdatedAt  time.Time      `db:"UPDATED_AT"`
}

// TestBestScore is an aggregate row for the per-test leaderboard query.
type TestBestScore struct {
	StudentID string `db:"STUDENT_ID"`
	BestScore int    `db:"BEST_SCORE"`
}

// QuizQuestion, EssayQuestion and CodingChallenge are the item targets the
// tagged TestItem reference points at.
type QuizQuestion struct {
	ID            string    `db:"ID"` // ULID
	Question      string    `db:"QUESTION"`
	CorrectAnswer string    `db:"CORRECT_ANSWER"`
	CreatedAt     time.Time `db:"CREATED_AT"`
}

type EssayQuestion struct {
	ID        string         `db:"ID"` // ULID
	Question  string         `db:"QUESTION"`
	Rubric    sql.NullString `db:"RUBRIC"`
	CreatedAt time.Time      `db:"CREATED_AT"`
}

type CodingChallenge struct {
	ID             string    `db:"ID"` // ULID
	Prompt         string    `db:"PROMPT"`
	ExpectedOutput string    `db:"EXPECTED_OUTPUT"`
	CreatedAt      time.Time `db:"CREATED_AT"`
}
