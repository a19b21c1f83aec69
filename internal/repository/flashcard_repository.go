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

// sqlxFlashcardRepository implements domain.FlashcardRepository using sqlx.
type sqlxFlashcardRepository struct {
	db *sqlx.DB
}

// NewSQLXFlashcardRepository creates a new instance of sqlxFlashcardRepository.
func NewSQLXFlashcardRepository(db *sqlx.DB) domain.FlashcardRepository {
	return &sqlxFlashcardRepository{db: db}
}

func toDomainFlashcard(m *models.Flashcard) *domain.Flashcard {
	if m == nil {
		return nil
	}
	return &domain.Flashcard{
		ID:        m.ID,
		DeckID:    m.DeckID.String,
		Front:     m.Front,
		Back:      m.Back,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// GetFlashcardByID retrieves a card by primary key, nil when absent.
func (r *sqlxFlashcardRepository) GetFlashcardByID(ctx context.Context, id string) (*domain.Flashcard, error) {
	var m models.Flashcard
	query := `SELECT * FROM flashcards WHERE id = :1`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flashcard: %w", err)
	}
	return toDomainFlashcard(&m), nil
}

// GetDueFlashcards returns cards whose progress row for the user is due, plus
// cards the user has never seen, oldest due first.
func (r *sqlxFlashcardRepository) GetDueFlashcards(ctx context.Context, userID string, now time.Time, limit int) ([]domain.Flashcard, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT * FROM (
	            SELECT f.*
	            FROM flashcards f
	            LEFT JOIN user_flashcard_progress p
	              ON p.flashcard_id = f.id AND p.user_id = :1
	            WHERE p.user_id IS NULL OR p.next_review_at <= :2
	            ORDER BY p.next_review_at NULLS FIRST
	          ) WHERE ROWNUM <= :3`

	var rows []models.Flashcard
	if err := GetExecutor(ctx, r.db).SelectContext(ctx, &rows, query, userID, now, limit); err != nil {
		return nil, fmt.Errorf("failed to select due flashcards: %w", err)
	}

	cards := make([]domain.Flashcard, len(rows))
	for i := range rows {
		cards[i] = *toDomainFlashcard(&rows[i])
	}
	return cards, nil
}

// SaveFlashcard inserts a new card.
func (r *sqlxFlashcardRepository) SaveFlashcard(ctx context.Context, card *domain.Flashcard) error {
	if err := card.Validate(); err != nil {
		return err
	}
	now := time.Now()
	query := `INSERT INTO flashcards (ID, DECK_ID, FRONT, BACK, CREATED_AT, UPDATED_AT)
	          VALUES (:1, :2, :3, :4, :5, :6)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		card.ID, util.StringToNullString(card.DeckID), card.Front, card.Back, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert flashcard: %w", err)
	}
	return nil
}

// sqlxFlashcardProgressRepository implements domain.FlashcardProgressRepository.
type sqlxFlashcardProgressRepository struct {
	db *sqlx.DB
}

// NewSQLXFlashcardProgressRepository creates a new progress repository.
func NewSQLXFlashcardProgressRepository(db *sqlx.DB) domain.FlashcardProgressRepository {
	return &sqlxFlashcardProgressRepository{db: db}
}

func toDomainProgress(m *models.UserFlashcardProgress) *domain.FlashcardProgress {
	if m == nil {
		return nil
	}
	return &domain.FlashcardProgress{
		UserID:         m.UserID,
		FlashcardID:    m.FlashcardID,
		EaseFactor:     m.EaseFactor,
		Interval:       m.ReviewInterval,
		Repetitions:    m.Repetitions,
		NextReviewAt:   m.NextReviewAt,
		LastReviewedAt: util.NullTimeToPtr(m.LastReviewedAt),
		UpdatedAt:      m.UpdatedAt,
	}
}

// GetProgress retrieves the scheduling row for a pair, nil when the user has
// never reviewed the card.
func (r *sqlxFlashcardProgressRepository) GetProgress(ctx context.Context, userID, flashcardID string) (*domain.FlashcardProgress, error) {
	var m models.UserFlashcardProgress
	query := `SELECT * FROM user_flashcard_progress WHERE user_id = :1 AND flashcard_id = :2`
	err := GetExecutor(ctx, r.db).GetContext(ctx, &m, query, userID, flashcardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flashcard progress: %w", err)
	}
	return toDomainProgress(&m), nil
}

// CreateProgress inserts the initial row for a pair. The composite primary
// key makes a duplicate insert a conflict the caller resolves by re-reading.
func (r *sqlxFlashcardProgressRepository) CreateProgress(ctx context.Context, p *domain.FlashcardProgress) error {
	query := `INSERT INTO user_flashcard_progress
	            (USER_ID, FLASHCARD_ID, EASE_FACTOR, REVIEW_INTERVAL, REPETITIONS, NEXT_REVIEW_AT, LAST_REVIEWED_AT, UPDATED_AT)
	          VALUES (:1, :2, :3, :4, :5, :6, :7, :8)`
	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		p.UserID, p.FlashcardID, p.EaseFactor, p.Interval, p.Repetitions,
		p.NextReviewAt, util.TimePtrToNullTime(p.LastReviewedAt), p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("progress row already exists for this card")
		}
		return fmt.Errorf("failed to insert flashcard progress: %w", err)
	}
	return nil
}

// UpdateProgress writes the new scheduling state with an optimistic guard on
// UPDATED_AT; a concurrent review of the same pair surfaces as a conflict
// instead of a lost update.
func (r *sqlxFlashcardProgressRepository) UpdateProgress(ctx context.Context, p *domain.FlashcardProgress, priorUpdatedAt time.Time) error {
	query := `UPDATE user_flashcard_progress
	          SET ease_factor = :1, review_interval = :2, repetitions = :3,
	              next_review_at = :4, last_reviewed_at = :5, updated_at = :6
	          WHERE user_id = :7 AND flashcard_id = :8 AND updated_at = :9`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		p.EaseFactor, p.Interval, p.Repetitions,
		p.NextReviewAt, util.TimePtrToNullTime(p.LastReviewedAt), p.UpdatedAt,
		p.UserID, p.FlashcardID, priorUpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update flashcard progress: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewConflictError("flashcard progress was modified concurrently")
	}
	return nil
}
