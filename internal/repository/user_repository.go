package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillquest/internal/domain"
	"skillquest/internal/repository/models"
	"skillquest/internal/util"

	"github.com/jmoiron/sqlx"
)

// isUniqueViolation reports whether the driver error is an Oracle unique
// constraint violation (ORA-00001).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "ORA-00001") || strings.Contains(strings.ToLower(msg), "unique constraint")
}

// sqlxUserRepository implements domain.UserRepository using sqlx.
type sqlxUserRepository struct {
	db *sqlx.DB
}

// NewSQLXUserRepository creates a new instance of sqlxUserRepository.
func NewSQLXUserRepository(db *sqlx.DB) domain.UserRepository {
	return &sqlxUserRepository{db: db}
}

func toDomainUser(m *models.User) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:             m.ID,
		Email:          m.Email,
		PasswordHash:   m.PasswordHash,
		Name:           m.Name.String,
		Role:           domain.Role(m.Role),
		TotalXP:        m.TotalXP,
		StreakDays:     m.StreakDays,
		LastActivityAt: util.NullTimeToPtr(m.LastActivityAt),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      util.NullTimeToPtr(m.DeletedAt),
	}
}

func fromDomainUser(u *domain.User) *models.User {
	if u == nil {
		return nil
	}
	return &models.User{
		ID:             u.ID,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		Name:           util.StringToNullString(u.Name),
		Role:           string(u.Role),
		TotalXP:        u.TotalXP,
		StreakDays:     u.StreakDays,
		LastActivityAt: util.TimePtrToNullTime(u.LastActivityAt),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		DeletedAt:      util.TimePtrToNullTime(u.DeletedAt),
	}
}

// CreateUser inserts a new user row.
func (r *sqlxUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	m := fromDomainUser(user)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.UpdatedAt = time.Now()

	query := `INSERT INTO users (ID, EMAIL, PASSWORD_HASH, NAME, ROLE, TOTAL_XP, STREAK_DAYS, LAST_ACTIVITY_AT, CREATED_AT, UPDATED_AT, DELETED_AT)
	          VALUES (:1, :2, :3, :4, :5, :6, :7, :8, :9, :10, :11)`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		m.ID, m.Email, m.PasswordHash, m.Name, m.Role,
		m.TotalXP, m.StreakDays, m.LastActivityAt,
		m.CreatedAt, m.UpdatedAt, m.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(fmt.Sprintf("user with email %s already exists", user.Email))
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by primary key, nil when absent.
func (r *sqlxUserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	var m models.User
	query := `SELECT * FROM users WHERE id = :1 AND deleted_at IS NULL`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return toDomainUser(&m), nil
}

// GetUserByEmail retrieves a user by the unique email key, nil when absent.
func (r *sqlxUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m models.User
	query := `SELECT * FROM users WHERE email = :1 AND deleted_at IS NULL`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return toDomainUser(&m), nil
}

// UpdateUser persists mutable profile and streak fields.
func (r *sqlxUserRepository) UpdateUser(ctx context.Context, user *domain.User) error {
	m := fromDomainUser(user)
	m.UpdatedAt = time.Now()

	query := `UPDATE users
	          SET email = :1, password_hash = :2, name = :3, role = :4,
	              streak_days = :5, last_activity_at = :6, updated_at = :7
	          WHERE id = :8 AND deleted_at IS NULL`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		m.Email, m.PasswordHash, m.Name, m.Role,
		m.StreakDays, m.LastActivityAt, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError(fmt.Sprintf("user %s not found", user.ID))
	}
	return nil
}

// AddXP atomically bumps the user's XP total in place and returns the new
// value, so two overlapping awards both count.
func (r *sqlxUserRepository) AddXP(ctx context.Context, userID string, delta int) (int, error) {
	exec := GetExecutor(ctx, r.db)

	query := `UPDATE users SET total_xp = total_xp + :1, updated_at = :2 WHERE id = :3 AND deleted_at IS NULL`
	result, err := exec.ExecContext(ctx, query, delta, time.Now(), userID)
	if err != nil {
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return 0, domain.NewNotFoundError(fmt.Sprintf("user %s not found", userID))
	}

	var total int
	if err := exec.GetContext(ctx, &total, `SELECT total_xp FROM users WHERE id = :1`, userID); err != nil {
		return 0, fmt.Errorf("failed to read xp total: %w", err)
	}
	return total, nil
}
