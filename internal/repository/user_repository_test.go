package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"skillquest/internal/domain"
	"skillquest/internal/repository/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
)

// setupUserTestDB creates a new sqlx.DB instance and sqlmock for user repository testing.
func setupUserTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return sqlxDB, mock
}

// --- Tests for Converter Functions ---

func TestToDomainUser(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	modelUser := &models.User{
		ID:           "user1",
		Email:        "test@example.com",
		PasswordHash: "bcrypt-hash",
		Name:         sql.NullString{String: "Test User", Valid: true},
		Role:         "student",
		TotalXP:      450,
		StreakDays:   3,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	domainUser := toDomainUser(modelUser)
	assert.NotNil(t, domainUser)
	assert.Equal(t, modelUser.ID, domainUser.ID)
	assert.Equal(t, modelUser.Email, domainUser.Email)
	assert.Equal(t, modelUser.PasswordHash, domainUser.PasswordHash)
	assert.Equal(t, modelUser.Name.String, domainUser.Name)
	assert.Equal(t, domain.RoleStudent, domainUser.Role)
	assert.Equal(t, 450, domainUser.TotalXP)
	assert.Equal(t, 3, domainUser.StreakDays)
	assert.Nil(t, domainUser.LastActivityAt)
	assert.Nil(t, domainUser.DeletedAt)

	// Null name maps to empty string
	modelUser.Name.Valid = false
	domainUser = toDomainUser(modelUser)
	assert.Equal(t, "", domainUser.Name)

	lastActive := now.Add(-time.Hour)
	modelUser.LastActivityAt = sql.NullTime{Time: lastActive, Valid: true}
	domainUser = toDomainUser(modelUser)
	assert.NotNil(t, domainUser.LastActivityAt)
	assert.True(t, lastActive.Equal(*domainUser.LastActivityAt))

	assert.Nil(t, toDomainUser(nil))
}

func TestFromDomainUser(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	domainUser := &domain.User{
		ID:           "user1",
		Email:        "test@example.com",
		PasswordHash: "bcrypt-hash",
		Name:         "Test User",
		Role:         domain.RoleTeacher,
		TotalXP:      100,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	modelUser := fromDomainUser(domainUser)
	assert.NotNil(t, modelUser)
	assert.Equal(t, domainUser.ID, modelUser.ID)
	assert.Equal(t, "teacher", modelUser.Role)
	assert.Equal(t, domainUser.Name, modelUser.Name.String)
	assert.True(t, modelUser.Name.Valid)
	assert.False(t, modelUser.LastActivityAt.Valid)
	assert.False(t, modelUser.DeletedAt.Valid)

	domainUser.Name = ""
	modelUser = fromDomainUser(domainUser)
	assert.False(t, modelUser.Name.Valid)

	assert.Nil(t, fromDomainUser(nil))
}

// --- Tests for Repository Methods ---

func TestSQLXUserRepository_GetUserByID_Success(t *testing.T) {
	db, mock := setupUserTestDB(t)
	repo := NewSQLXUserRepository(db)
	defer db.Close()

	userID := "user-test-id"
	now := time.Now()

	rows := sqlmock.NewRows([]string{"ID", "EMAIL", "PASSWORD_HASH", "NAME", "ROLE", "TOTAL_XP", "STREAK_DAYS", "LAST_ACTIVITY_AT", "CREATED_AT", "UPDATED_AT", "DELETED_AT"}).
		AddRow(userID, "test@example.com", "hash", "Test User", "student", 250, 2, nil, now, now, nil)

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = :1 AND deleted_at IS NULL`).
		WithArgs(userID).
		WillReturnRows(rows)

	domainUser, err := repo.GetUserByID(context.Background(), userID)

	assert.NoError(t, err)
	assert.NotNil(t, domainUser)
	assert.Equal(t, userID, domainUser.ID)
	assert.Equal(t, 250, domainUser.TotalXP)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXUserRepository_GetUserByID_NotFound(t *testing.T) {
	db, mock := setupUserTestDB(t)
	repo := NewSQLXUserRepository(db)
	defer db.Close()

	userID := "non-existent-id"

	mock.ExpectQuery(`SELECT \* FROM users WHERE id = :1 AND deleted_at IS NULL`).
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	domainUser, err := repo.GetUserByID(context.Background(), userID)

	assert.NoError(t, err, "Expected no error from repository when record not found")
	assert.Nil(t, domainUser, "Expected nil user for not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXUserRepository_CreateUser_DuplicateEmail(t *testing.T) {
	db, mock := setupUserTestDB(t)
	repo := NewSQLXUserRepository(db)
	defer db.Close()

	domainUser := &domain.User{
		ID:           "new-user-id",
		Email:        "taken@example.com",
		PasswordHash: "hash",
		Role:         domain.RoleStudent,
	}

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(assert.AnError)

	err := repo.CreateUser(context.Background(), domainUser)
	assert.Error(t, err)

	// An ORA-00001 surfaces as a CONFLICT domain error.
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errUniqueStub("ORA-00001: unique constraint (SKILLQUEST.UQ_USERS_EMAIL) violated"))

	err = repo.CreateUser(context.Background(), domainUser)
	assert.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeConflict, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXUserRepository_AddXP(t *testing.T) {
	db, mock := setupUserTestDB(t)
	repo := NewSQLXUserRepository(db)
	defer db.Close()

	userID := "user-xp"

	mock.ExpectExec(`UPDATE users SET total_xp = total_xp \+ :1`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT total_xp FROM users WHERE id = :1`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"TOTAL_XP"}).AddRow(375))

	total, err := repo.AddXP(context.Background(), userID, 75)

	assert.NoError(t, err)
	assert.Equal(t, 375, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLXUserRepository_AddXP_UserMissing(t *testing.T) {
	db, mock := setupUserTestDB(t)
	repo := NewSQLXUserRepository(db)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET total_xp = total_xp \+ :1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.AddXP(context.Background(), "ghost", 10)

	assert.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	assert.True(t, ok)
	assert.Equal(t, domain.CodeNotFound, domainErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// errUniqueStub mimics a driver unique constraint error message.
type errUniqueStub string

func (e errUniqueStub) Error() string { return string(e) }

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.False(t, isUniqueViolation(assert.AnError))
	assert.True(t, isUniqueViolation(errUniqueStub("ORA-00001: unique constraint violated")))
	assert.True(t, isUniqueViolation(errUniqueStub("UNIQUE constraint failed: users.email")))
}
