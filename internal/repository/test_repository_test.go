package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"skillquest/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

func setupTestRepoDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return sqlxDB, mock
}

func TestSQLXTestRepository_GetTestByID_Success(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	now := time.Now()
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	rows := sqlmock.NewRows([]string{
		"ID", "TEACHER_ID", "COURSE_ID", "TITLE", "SLUG", "DURATION_MINUTES", "TOTAL_POINTS",
		"START_TIME", "END_TIME", "STATUS", "SHUFFLE_QUESTIONS", "SHOW_RESULTS_IMMEDIATELY",
		"ALLOW_REVIEW", "MAX_ATTEMPTS", "CREATED_AT", "UPDATED_AT", "DELETED_AT",
	}).AddRow(
		"test1", "teacher1", nil, "Midterm", "midterm", 60, 100,
		start, end, "active", false, true,
		true, 2, now, now, nil,
	)

	mock.ExpectQuery(`SELECT \* FROM tests WHERE id = :1 AND deleted_at IS NULL`).
		WithArgs("test1").
		WillReturnRows(rows)

	test, err := repo.GetTestByID(context.Background(), "test1")

	assert.NoError(t, err)
	assert.NotNil(t, test)
	assert.Equal(t, "test1", test.ID)
	assert.Equal(t, domain.TestStatusActive, test.Status)
	assert.Equal(t, 60, test.DurationMinutes)
	assert.NotNil(t, test.StartTime)
	assert.True(t, start.Equal(*test.StartTime))
	assert.Equal(t, "", test.CourseID)
	assert.True(t, test.IsOpenForAttempt(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTestRepository_UpdateTestStatus_Success(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE tests SET status = :1, updated_at = :2 WHERE id = :3 AND status = :4`).
		WithArgs("active", now, "test1", "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateTestStatus(context.Background(), "test1", domain.TestStatusScheduled, domain.TestStatusActive, now)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTestRepository_UpdateTestStatus_LostRace(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	// Zero rows means the status already moved under us.
	mock.ExpectExec(`UPDATE tests SET status = :1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTestStatus(context.Background(), "test1", domain.TestStatusActive, domain.TestStatusClosed, time.Now())

	assert.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeConflict, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTestRepository_ResolveAnswerKey_Quiz(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"ID", "QUESTION", "CORRECT_ANSWER", "CREATED_AT"}).
		AddRow("q1", "What does TCP stand for?", "Transmission Control Protocol", time.Now())

	mock.ExpectQuery(`SELECT \* FROM quiz_questions WHERE id = :1`).
		WithArgs("q1").
		WillReturnRows(rows)

	item := &domain.TestItem{ID: "item1", Kind: domain.ItemKindQuizQuestion, ItemRefID: "q1"}
	key, err := repo.ResolveAnswerKey(context.Background(), item)

	assert.NoError(t, err)
	assert.NotNil(t, key)
	assert.True(t, key.AutoGradable)
	assert.True(t, key.Matches(domain.ItemKindQuizQuestion, "transmission control protocol"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTestRepository_ResolveAnswerKey_Essay(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	// Essay keys never touch the database; there is nothing to compare.
	item := &domain.TestItem{ID: "item1", Kind: domain.ItemKindEssayQuestion, ItemRefID: "e1"}
	key, err := repo.ResolveAnswerKey(context.Background(), item)

	assert.NoError(t, err)
	assert.NotNil(t, key)
	assert.False(t, key.AutoGradable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTestRepository_ResolveAnswerKey_MissingQuestion(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM coding_challenges WHERE id = :1`).
		WithArgs("c404").
		WillReturnError(sql.ErrNoRows)

	item := &domain.TestItem{ID: "item1", Kind: domain.ItemKindCodingChallenge, ItemRefID: "c404"}
	key, err := repo.ResolveAnswerKey(context.Background(), item)

	assert.Error(t, err)
	assert.Nil(t, key)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXTestRepository_IsStudentAssigned(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXTestRepository(db)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM test_students`).
		WithArgs("test1", "student1").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	assigned, err := repo.IsStudentAssigned(context.Background(), "test1", "student1")

	assert.NoError(t, err)
	assert.True(t, assigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXAttemptRepository_CreateAttempt_DuplicateNumber(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXAttemptRepository(db)
	defer db.Close()

	attempt := &domain.TestAttempt{
		ID:            "attempt1",
		TestID:        "test1",
		StudentID:     "student1",
		AttemptNumber: 1,
		StartedAt:     time.Now(),
		Status:        domain.AttemptStatusInProgress,
		UpdatedAt:     time.Now(),
	}

	mock.ExpectExec(`INSERT INTO test_attempts`).
		WillReturnError(errUniqueStub("ORA-00001: unique constraint (SKILLQUEST.UQ_ATTEMPT_NUMBER) violated"))

	err := repo.CreateAttempt(context.Background(), attempt)

	assert.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeConflict, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXAttemptRepository_GetBestScoresByTest(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXAttemptRepository(db)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"STUDENT_ID", "BEST_SCORE"}).
		AddRow("student2", 95).
		AddRow("student1", 80)

	mock.ExpectQuery(`SELECT student_id, MAX\(total_score\) AS best_score`).
		WithArgs("test1", "graded", 10).
		WillReturnRows(rows)

	entries, err := repo.GetBestScoresByTest(context.Background(), "test1", 10)

	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "student2", entries[0].StudentID)
	assert.Equal(t, 95, entries[0].BestScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXAttemptRepository_UpsertSubmission_InsertWhenNew(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXAttemptRepository(db)
	defer db.Close()

	submission := &domain.TestItemSubmission{
		ID:         "sub1",
		AttemptID:  "attempt1",
		TestItemID: "item1",
		Answer:     "42",
		UpdatedAt:  time.Now(),
	}

	mock.ExpectExec(`UPDATE test_item_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO test_item_submissions`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.UpsertSubmission(context.Background(), submission)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXAttemptRepository_UpsertSubmission_OverwritesExisting(t *testing.T) {
	db, mock := setupTestRepoDB(t)
	repo := NewSQLXAttemptRepository(db)
	defer db.Close()

	submission := &domain.TestItemSubmission{
		ID:         "sub1",
		AttemptID:  "attempt1",
		TestItemID: "item1",
		Answer:     "revised answer",
		UpdatedAt:  time.Now(),
	}

	mock.ExpectExec(`UPDATE test_item_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertSubmission(context.Background(), submission)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
