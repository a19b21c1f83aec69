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

// sqlxLevelRepository implements domain.LevelRepository using sqlx.
type sqlxLevelRepository struct {
	db *sqlx.DB
}

// NewSQLXLevelRepository creates a new instance of sqlxLevelRepository.
func NewSQLXLevelRepository(db *sqlx.DB) domain.LevelRepository {
	return &sqlxLevelRepository{db: db}
}

func toDomainLevel(m *models.Level) *domain.Level {
	if m == nil {
		return nil
	}
	return &domain.Level{
		ID:          m.ID,
		Number:      m.LevelNumber,
		Name:        m.Name,
		Description: m.Description.String,
		ExpRequired: m.ExpRequired,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// GetAllLevels returns the full ladder ordered by level number; ResolveLevel
// depends on this ordering for its binary search.
func (r *sqlxLevelRepository) GetAllLevels(ctx context.Context) ([]domain.Level, error) {
	var rows []models.Level
	query := `SELECT * FROM levels ORDER BY level_number ASC`
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to select levels: %w", err)
	}

	levels := make([]domain.Level, len(rows))
	for i := range rows {
		levels[i] = *toDomainLevel(&rows[i])
	}
	return levels, nil
}

// GetLevelByNumber retrieves one level, nil when absent.
func (r *sqlxLevelRepository) GetLevelByNumber(ctx context.Context, number int) (*domain.Level, error) {
	var m models.Level
	query := `SELECT * FROM levels WHERE level_number = :1`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get level %d: %w", number, err)
	}
	return toDomainLevel(&m), nil
}

// SaveLevel upserts one rung of the ladder. Only the seed tool writes levels;
// at runtime the table is read-only reference data.
func (r *sqlxLevelRepository) SaveLevel(ctx context.Context, level *domain.Level) error {
	if err := level.Validate(); err != nil {
		return err
	}

	now := time.Now()
	exec := GetExecutor(ctx, r.db)

	update := `UPDATE levels SET name = :1, description = :2, exp_required = :3, updated_at = :4 WHERE level_number = :5`
	result, err := exec.ExecContext(ctx, update,
		level.Name, util.StringToNullString(level.Description), level.ExpRequired, now, level.Number)
	if err != nil {
		return fmt.Errorf("failed to update level %d: %w", level.Number, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	insert := `INSERT INTO levels (ID, LEVEL_NUMBER, NAME, DESCRIPTION, EXP_REQUIRED, CREATED_AT, UPDATED_AT)
	           VALUES (:1, :2, :3, :4, :5, :6, :7)`
	_, err = exec.ExecContext(ctx, insert,
		level.ID, level.Number, level.Name, util.StringToNullString(level.Description),
		level.ExpRequired, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert level %d: %w", level.Number, err)
	}
	return nil
}
