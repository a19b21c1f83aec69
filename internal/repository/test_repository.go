package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skillquest/internal/domain"
	"skillquest/internal/repository/models"
	"skillquest/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxTestRepository implements domain.TestRepository using sqlx.
type sqlxTestRepository struct {
	db *sqlx.DB
}

// NewSQLXTestRepository creates a new instance of sqlxTestRepository.
func NewSQLXTestRepository(db *sqlx.DB) domain.TestRepository {
	return &sqlxTestRepository{db: db}
}

func toDomainTest(m *models.Test) *domain.Test {
	if m == nil {
		return nil
	}
	duration := 0
	if m.DurationMinutes.Valid {
		duration = int(m.DurationMinutes.Int64)
	}
	return &domain.Test{
		ID:                     m.ID,
		TeacherID:              m.TeacherID,
		CourseID:               m.CourseID.String,
		Title:                  m.Title,
		Slug:                   m.Slug,
		DurationMinutes:        duration,
		TotalPoints:            m.TotalPoints,
		StartTime:              util.NullTimeToPtr(m.StartTime),
		EndTime:                util.NullTimeToPtr(m.EndTime),
		Status:                 domain.TestStatus(m.Status),
		ShuffleQuestions:       m.ShuffleQuestions,
		ShowResultsImmediately: m.ShowResultsImmediately,
		AllowReview:            m.AllowReview,
		MaxAttempts:            m.MaxAttempts,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
		DeletedAt:              util.NullTimeToPtr(m.DeletedAt),
	}
}

func toDomainTestItem(m *models.TestItem) domain.TestItem {
	return domain.TestItem{
		ID:        m.ID,
		TestID:    m.TestID,
		Kind:      domain.ItemKind(m.ItemKind),
		ItemRefID: m.ItemRefID,
		Position:  m.Position,
		Points:    m.Points,
	}
}

// GetTestByID retrieves a test by primary key, nil when absent or
// soft-deleted.
func (r *sqlxTestRepository) GetTestByID(ctx context.Context, id string) (*domain.Test, error) {
	var m models.Test
	query := `SELECT * FROM tests WHERE id = :1 AND deleted_at IS NULL`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	return toDomainTest(&m), nil
}

// GetTestBySlug retrieves a test by its unique slug, nil when absent.
func (r *sqlxTestRepository) GetTestBySlug(ctx context.Context, slug string) (*domain.Test, error) {
	var m models.Test
	query := `SELECT * FROM tests WHERE slug = :1 AND deleted_at IS NULL`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test by slug: %w", err)
	}
	return toDomainTest(&m), nil
}

// GetOpenTestIDs lists tests students may currently be taking, for the
// attempt-expiry sweeper.
func (r *sqlxTestRepository) GetOpenTestIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT id FROM tests WHERE status IN (:1, :2) AND deleted_at IS NULL`
	err := GetExecutor(ctx, r.db).SelectContext(ctx, &ids, query,
		string(domain.TestStatusScheduled), string(domain.TestStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to select open tests: %w", err)
	}
	return ids, nil
}

// SaveTest inserts a new test row.
func (r *sqlxTestRepository) SaveTest(ctx context.Context, test *domain.Test) error {
	if err := test.Validate(); err != nil {
		return err
	}
	now := time.Now()

	var duration sql.NullInt64
	if test.DurationMinutes > 0 {
		duration = sql.NullInt64{Int64: int64(test.DurationMinutes), Valid: true}
	}

	query := `INSERT INTO tests
	            (ID, TEACHER_ID, COURSE_ID, TITLE, SLUG, DURATION_MINUTES, TOTAL_POINTS,
	             START_TIME, END_TIME, STATUS, SHUFFLE_QUESTIONS, SHOW_RESULTS_IMMEDIATELY,
	             ALLOW_REVIEW, MAX_ATTEMPTS, CREATED_AT, UPDATED_AT, DELETED_AT)
	          VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10, :11, :12, :13, :14, :15, :16, :17)`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		test.ID, test.TeacherID, util.StringToNullString(test.CourseID),
		test.Title, test.Slug, duration, test.TotalPoints,
		util.TimePtrToNullTime(test.StartTime), util.TimePtrToNullTime(test.EndTime),
		string(test.Status), test.ShuffleQuestions, test.ShowResultsImmediately,
		test.AllowReview, test.MaxAttempts, now, now, nil,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(fmt.Sprintf("test slug %q is already taken", test.Slug))
		}
		return fmt.Errorf("failed to insert test: %w", err)
	}
	return nil
}

// UpdateTestStatus moves a test between statuses with a compare-and-swap on
// the current status; a zero row count means someone else already moved it.
func (r *sqlxTestRepository) UpdateTestStatus(ctx context.Context, testID string, from, to domain.TestStatus, now time.Time) error {
	query := `UPDATE tests SET status = :1, updated_at = :2 WHERE id = :3 AND status = :4 AND deleted_at IS NULL`
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, string(to), now, testID, string(from))
	if err != nil {
		return fmt.Errorf("failed to update test status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError(fmt.Sprintf("test %s is no longer in status %s", testID, from))
	}
	return nil
}

// GetItemsByTestID returns a test's items in display order.
func (r *sqlxTestRepository) GetItemsByTestID(ctx context.Context, testID string) ([]domain.TestItem, error) {
	var rows []models.TestItem
	query := `SELECT * FROM test_items WHERE test_id = :1 ORDER BY position ASC`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, testID); err != nil {
		return nil, fmt.Errorf("failed to select test items: %w", err)
	}
	items := make([]domain.TestItem, len(rows))
	for i := range rows {
		items[i] = toDomainTestItem(&rows[i])
	}
	return items, nil
}

// GetItemByID retrieves one item, nil when absent.
func (r *sqlxTestRepository) GetItemByID(ctx context.Context, itemID string) (*domain.TestItem, error) {
	var m models.TestItem
	query := `SELECT * FROM test_items WHERE id = :1`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test item: %w", err)
	}
	item := toDomainTestItem(&m)
	return &item, nil
}

// SaveItem inserts a new item and bumps the owning test's total points.
func (r *sqlxTestRepository) SaveItem(ctx context.Context, item *domain.TestItem) error {
	exec := GetExecutor(ctx, r.db)

	query := `INSERT INTO test_items (ID, TEST_ID, ITEM_KIND, ITEM_REF_ID, POSITION, POINTS)
	          VALUES (:1, :2, :3, :4, :5, :6)`
	_, err := exec.ExecContext(ctx, query,
		item.ID, item.TestID, string(item.Kind), item.ItemRefID, item.Position, item.Points)
	if err != nil {
		return fmt.Errorf("failed to insert test item: %w", err)
	}

	_, err = exec.ExecContext(ctx,
		`UPDATE tests SET total_points = total_points + :1, updated_at = :2 WHERE id = :3`,
		item.Points, time.Now(), item.TestID)
	if err != nil {
		return fmt.Errorf("failed to update test total points: %w", err)
	}
	return nil
}

// ResolveAnswerKey loads what submissions against this item are compared to,
// switching exhaustively on the item kind.
func (r *sqlxTestRepository) ResolveAnswerKey(ctx context.Context, item *domain.TestItem) (*domain.AnswerKey, error) {
	exec := GetExecutor(ctx, r.db)

	switch item.Kind {
	case domain.ItemKindQuizQuestion:
		var q models.QuizQuestion
		err := exec.GetContext(ctx, &q, `SELECT * FROM quiz_questions WHERE id = :1`, item.ItemRefID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NewNotFoundError(fmt.Sprintf("quiz question %s not found", item.ItemRefID))
			}
			return nil, fmt.Errorf("failed to get quiz question: %w", err)
		}
		return &domain.AnswerKey{Expected: q.CorrectAnswer, AutoGradable: true}, nil

	case domain.ItemKindCodingChallenge:
		var c models.CodingChallenge
		err := exec.GetContext(ctx, &c, `SELECT * FROM coding_challenges WHERE id = :1`, item.ItemRefID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.NewNotFoundError(fmt.Sprintf("coding challenge %s not found", item.ItemRefID))
			}
			return nil, fmt.Errorf("failed to get coding challenge: %w", err)
		}
		return &domain.AnswerKey{Expected: c.ExpectedOutput, AutoGradable: true}, nil

	case domain.ItemKindEssayQuestion:
		return &domain.AnswerKey{AutoGradable: false}, nil

	default:
		return nil, domain.NewInvalidInputError(fmt.Sprintf("unknown item kind %q", item.Kind))
	}
}

// GetEssayQuestion loads an essay prompt for grading and assistant calls.
func (r *sqlxTestRepository) GetEssayQuestion(ctx context.Context, id string) (*domain.EssayQuestion, error) {
	var m models.EssayQuestion
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, `SELECT * FROM essay_questions WHERE id = :1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get essay question: %w", err)
	}
	return &domain.EssayQuestion{ID: m.ID, Question: m.Question, Rubric: m.Rubric.String}, nil
}

// IsStudentAssigned checks the roster for a (test, student) pair.
func (r *sqlxTestRepository) IsStudentAssigned(ctx context.Context, testID, studentID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM test_students WHERE test_id = :1 AND student_id = :2`
	if err := GetExecutor(ctx, r.db).GetContext(ctx, &count, query, testID, studentID); err != nil {
		return false, fmt.Errorf("failed to check roster: %w", err)
	}
	return count > 0, nil
}

// AssignStudent adds a roster entry; assigning twice is a no-op conflict.
func (r *sqlxTestRepository) AssignStudent(ctx context.Context, testID, studentID string) error {
	query := `INSERT INTO test_students (TEST_ID, STUDENT_ID, CREATED_AT) VALUES (:1, :2, :3)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, testID, studentID, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("student is already assigned to this test")
		}
		return fmt.Errorf("failed to assign student: %w", err)
	}
	return nil
}
