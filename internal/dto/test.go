package dto

import "time"

// CreateTestRequest is the teacher payload for authoring a test.
type CreateTestRequest struct {
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	CourseID         string     `json:"course_id,omitempty"`
	DurationMinutes  int        `json:"duration_minutes,omitempty"`
	StartTime        *time.Time `json:"start_time,omitempty"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	MaxAttempts      int        `json:"max_attempts"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	AllowReview      bool       `json:"allow_review"`
}

// TestResponse represents a test in the API response.
type TestResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Slug            string     `json:"slug"`
	Status          string     `json:"status"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	TotalPoints     int        `json:"total_points"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	MaxAttempts     int        `json:"max_attempts"`
}

// AddItemRequest appends one gradable item to a draft test.
type AddItemRequest struct {
	Kind      string `json:"kind"`
	ItemRefID string `json:"item_ref_id"`
	Position  int    `json:"position,omitempty"`
	Points    int    `json:"points"`
}

// TestItemResponse represents a test item in the API response.
type TestItemResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ItemRefID string `json:"item_ref_id"`
	Position  int    `json:"position"`
	Points    int    `json:"points"`
}

// TestDetailResponse is a test together with its items.
type TestDetailResponse struct {
	TestResponse
	Items []TestItemResponse `json:"items"`
}

// AssignStudentRequest puts a student on a test roster.
type AssignStudentRequest struct {
	StudentID string `json:"student_id"`
}

// AttemptResponse represents an attempt in the API response.
type AttemptResponse struct {
	ID               string     `json:"id"`
	TestID           string     `json:"test_id"`
	AttemptNumber    int        `json:"attempt_number"`
	Status           string     `json:"status"`
	StartedAt        time.Time  `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	TimeSpentMinutes int        `json:"time_spent_minutes,omitempty"`
	TotalScore       int        `json:"total_score"`
}

// SubmitAnswerRequest records a student answer to one item.
type SubmitAnswerRequest struct {
	TestItemID string `json:"test_item_id"`
	Answer     string `json:"answer"`
}

// SubmissionResponse represents an item submission in the API response.
type SubmissionResponse struct {
	ID         string `json:"id"`
	TestItemID string `json:"test_item_id"`
	Answer     string `json:"answer"`
	Score      *int   `json:"score,omitempty"`
	IsCorrect  *bool  `json:"is_correct,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
}

// GradeRequest records a manual grade for one submission.
type GradeRequest struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback,omitempty"`
}

// EssaySuggestionResponse is the advisory output of the essay assistant.
type EssaySuggestionResponse struct {
	SubmissionID   string `json:"submission_id"`
	SuggestedScore int    `json:"suggested_score"`
	Feedback       string `json:"feedback"`
}

// ErrorResponse represents an error in the API response
type ErrorResponse struct {
	Error string `json:"error"`
}
