package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"skillquest/internal/domain"
	"skillquest/internal/repository/models"
	"skillquest/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxAttemptRepository implements domain.AttemptRepository using sqlx.
type sqlxAttemptRepository struct {
	db *sqlx.DB
}

// NewSQLXAttemptRepository creates a new instance of sqlxAttemptRepository.
func NewSQLXAttemptRepository(db *sqlx.DB) domain.AttemptRepository {
	return &sqlxAttemptRepository{db: db}
}

func toDomainAttempt(m *models.TestAttempt) *domain.TestAttempt {
	if m == nil {
		return nil
	}
	return &domain.TestAttempt{
		ID:               m.ID,
		TestID:           m.TestID,
		StudentID:        m.StudentID,
		AttemptNumber:    m.AttemptNumber,
		StartedAt:        m.StartedAt,
		SubmittedAt:      util.NullTimeToPtr(m.SubmittedAt),
		TimeSpentMinutes: int(m.TimeSpentMinutes.Int64),
		TotalScore:       m.TotalScore,
		Status:           domain.AttemptStatus(m.Status),
		UpdatedAt:        m.UpdatedAt,
	}
}

func toDomainSubmission(m *models.TestItemSubmission) *domain.TestItemSubmission {
	if m == nil {
		return nil
	}
	return &domain.TestItemSubmission{
		ID:         m.ID,
		AttemptID:  m.AttemptID,
		TestItemID: m.TestItemID,
		Answer:     m.Answer,
		Score:      util.NullInt64ToIntPtr(m.Score),
		IsCorrect:  util.NullBoolToBoolPtr(m.IsCorrect),
		Feedback:   m.Feedback.String,
		UpdatedAt:  m.UpdatedAt,
	}
}

// GetAttemptByID retrieves an attempt, nil when absent.
func (r *sqlxAttemptRepository) GetAttemptByID(ctx context.Context, id string) (*domain.TestAttempt, error) {
	var m models.TestAttempt
	query := `SELECT * FROM test_attempts WHERE id = :1`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return toDomainAttempt(&m), nil
}

// GetAttemptsByTestAndStudent returns every attempt a student has made at a
// test, newest attempt number first.
func (r *sqlxAttemptRepository) GetAttemptsByTestAndStudent(ctx context.Context, testID, studentID string) ([]domain.TestAttempt, error) {
	var rows []models.TestAttempt
	query := `SELECT * FROM test_attempts WHERE test_id = :1 AND student_id = :2 ORDER BY attempt_number DESC`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, testID, studentID); err != nil {
		return nil, fmt.Errorf("failed to select attempts: %w", err)
	}
	attempts := make([]domain.TestAttempt, len(rows))
	for i := range rows {
		attempts[i] = *toDomainAttempt(&rows[i])
	}
	return attempts, nil
}

// GetExpiredInProgressAttempts finds in-progress attempts whose duration
// deadline has passed. The end-window cutoff is applied by the caller, which
// has the test loaded.
func (r *sqlxAttemptRepository) GetExpiredInProgressAttempts(ctx context.Context, testID string) ([]domain.TestAttempt, error) {
	var rows []models.TestAttempt
	query := `SELECT * FROM test_attempts WHERE test_id = :1 AND status = :2`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, testID, string(domain.AttemptStatusInProgress)); err != nil {
		return nil, fmt.Errorf("failed to select in-progress attempts: %w", err)
	}
	attempts := make([]domain.TestAttempt, len(rows))
	for i := range rows {
		attempts[i] = *toDomainAttempt(&rows[i])
	}
	return attempts, nil
}

// CreateAttempt inserts a new attempt. The unique
// (test_id, student_id, attempt_number) constraint turns a concurrent start
// into a CONFLICT the service retries with a recomputed number.
func (r *sqlxAttemptRepository) CreateAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	query := `INSERT INTO test_attempts
	            (ID, TEST_ID, STUDENT_ID, ATTEMPT_NUMBER, STARTED_AT, SUBMITTED_AT,
	             TIME_SPENT_MINUTES, TOTAL_SCORE, STATUS, UPDATED_AT)
	          VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		attempt.ID, attempt.TestID, attempt.StudentID, attempt.AttemptNumber,
		attempt.StartedAt, util.TimePtrToNullTime(attempt.SubmittedAt),
		attempt.TimeSpentMinutes, attempt.TotalScore, string(attempt.Status), attempt.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(fmt.Sprintf("attempt %d at test %s already exists", attempt.AttemptNumber, attempt.TestID))
		}
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

// GetBestScoresByTest ranks students by their best graded attempt at a test.
// Only graded attempts count; abandoned attempts never reach the board.
func (r *sqlxAttemptRepository) GetBestScoresByTest(ctx context.Context, testID string, limit int) ([]domain.TestLeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.TestBestScore
	query := `SELECT * FROM (
	            SELECT student_id, MAX(total_score) AS best_score
	            FROM test_attempts
	            WHERE test_id = :1 AND status = :2
	            GROUP BY student_id
	            ORDER BY best_score DESC, student_id ASC
	          ) WHERE ROWNUM <= :3`
	err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query,
		testID, string(domain.AttemptStatusGraded), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select test leaderboard: %w", err)
	}
	entries := make([]domain.TestLeaderboardEntry, len(rows))
	for i := range rows {
		entries[i] = domain.TestLeaderboardEntry{
			StudentID: rows[i].StudentID,
			BestScore: rows[i].BestScore,
		}
	}
	return entries, nil
}

// UpdateAttempt persists attempt state changes.
func (r *sqlxAttemptRepository) UpdateAttempt(ctx context.Context, attempt *domain.TestAttempt) error {
	query := `UPDATE test_attempts
	          SET submitted_at = :1, time_spent_minutes = :2, total_score = :3,
	              status = :4, updated_at = :5
	          WHERE id = :6`
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		util.TimePtrToNullTime(attempt.SubmittedAt), attempt.TimeSpentMinutes,
		attempt.TotalScore, string(attempt.Status), attempt.UpdatedAt, attempt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError(fmt.Sprintf("attempt %s not found", attempt.ID))
	}
	return nil
}

// GetSubmission retrieves the answer for one (attempt, item) pair, nil when
// nothing was submitted yet.
func (r *sqlxAttemptRepository) GetSubmission(ctx context.Context, attemptID, itemID string) (*domain.TestItemSubmission, error) {
	var m models.TestItemSubmission
	query := `SELECT * FROM test_item_submissions WHERE test_attempt_id = :1 AND test_item_id = :2`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, attemptID, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return toDomainSubmission(&m), nil
}

// GetSubmissionByID retrieves a submission by primary key, nil when absent.
func (r *sqlxAttemptRepository) GetSubmissionByID(ctx context.Context, id string) (*domain.TestItemSubmission, error) {
	var m models.TestItemSubmission
	query := `SELECT * FROM test_item_submissions WHERE id = :1`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return toDomainSubmission(&m), nil
}

// GetSubmissionsByAttempt returns every answer recorded for an attempt.
func (r *sqlxAttemptRepository) GetSubmissionsByAttempt(ctx context.Context, attemptID string) ([]domain.TestItemSubmission, error) {
	var rows []models.TestItemSubmission
	query := `SELECT * FROM test_item_submissions WHERE test_attempt_id = :1`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, attemptID); err != nil {
		return nil, fmt.Errorf("failed to select submissions: %w", err)
	}
	submissions := make([]domain.TestItemSubmission, len(rows))
	for i := range rows {
		submissions[i] = *toDomainSubmission(&rows[i])
	}
	return submissions, nil
}

// UpsertSubmission replaces an existing answer for the (attempt, item) pair or
// inserts a new one. Resubmitting before the deadline overwrites in place.
func (r *sqlxAttemptRepository) UpsertSubmission(ctx context.Context, submission *domain.TestItemSubmission) error {
	exec := GetExecutor(ctx, r.db)

	updateQuery := `UPDATE test_item_submissions
	                SET answer = :1, score = :2, is_correct = :3, feedback = :4, updated_at = :5
	                WHERE test_attempt_id = :6 AND test_item_id = :7`
	result, err := exec.ExecContext(ctx, updateQuery,
		submission.Answer, util.IntPtrToNullInt64(submission.Score),
		util.BoolPtrToNullBool(submission.IsCorrect),
		util.StringToNullString(submission.Feedback), submission.UpdatedAt,
		submission.AttemptID, submission.TestItemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	insertQuery := `INSERT INTO test_item_submissions
	                  (ID, TEST_ATTEMPT_ID, TEST_ITEM_ID, ANSWER, SCORE, IS_CORRECT, FEEDBACK, UPDATED_AT)
	                VALUES (:1, :2, :3, :4, :5, :6, :7, :8)`
	_, err = exec.ExecContext(ctx, insertQuery,
		submission.ID, submission.AttemptID, submission.TestItemID, submission.Answer,
		util.IntPtrToNullInt64(submission.Score), util.BoolPtrToNullBool(submission.IsCorrect),
		util.StringToNullString(submission.Feedback), submission.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("submission for this item already exists")
		}
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}
