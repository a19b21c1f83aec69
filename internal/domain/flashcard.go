package domain

import (
	"context"
	"math"
	"time"
)

// Flashcard is a single reviewable card. Content lives here; scheduling state
// is per user in FlashcardProgress.
type Flashcard struct {
	ID        string
	DeckID    string
	Front     string
	Back      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the flashcard
func (f *Flashcard) Validate() error {
	if f.Front == "" {
		return NewInvalidInputError("front is required")
	}
	if f.Back == "" {
		return NewInvalidInputError("back is required")
	}
	return nil
}

// FlashcardProgress is the SM-2 scheduling state for one (user, card) pair.
// EaseFactor is kept in centiunits (250 == 2.5) so the row stays integral.
type FlashcardProgress struct {
	UserID         string
	FlashcardID    string
	EaseFactor     int
	Interval       int
	Repetitions    int
	NextReviewAt   time.Time
	LastReviewedAt *time.Time
	UpdatedAt      time.Time
}

// NewFlashcardProgress creates the initial scheduling state for a pair. The
// card is due immediately.
func NewFlashcardProgress(userID, flashcardID string, now time.Time) *FlashcardProgress {
	return &FlashcardProgress{
		UserID:       userID,
		FlashcardID:  flashcardID,
		EaseFactor:   DefaultEase,
		Interval:     FirstInterval,
		Repetitions:  0,
		NextReviewAt: now,
		UpdatedAt:    now,
	}
}

// IsDue reports whether the card needs review at the given time.
func (p *FlashcardProgress) IsDue(now time.Time) bool {
	return !p.NextReviewAt.After(now)
}

// RecordReview applies one SM-2 transition for a recall of the given quality
// (0 = total blackout, 5 = perfect). The ease factor is adjusted on every
// review, success or failure, and never drops below MinimumEase. A quality
// below 3 resets the repetition streak; otherwise the interval grows through
// the 1, 6, interval*ease/100 sequence using the freshly adjusted ease.
func (p *FlashcardProgress) RecordReview(quality int, now time.Time) error {
	if quality < 0 || quality > MaxReviewQuality {
		return NewInvalidInputError("quality must be between 0 and 5")
	}

	miss := float64(MaxReviewQuality - quality)
	delta := (0.1 - miss*(0.08+miss*0.02)) * 100
	p.EaseFactor += int(math.Round(delta))
	if p.EaseFactor < MinimumEase {
		p.EaseFactor = MinimumEase
	}

	if quality < 3 {
		p.Repetitions = 0
		p.Interval = FirstInterval
	} else {
		p.Repetitions++
		switch p.Repetitions {
		case 1:
			p.Interval = FirstInterval
		case 2:
			p.Interval = SecondInterval
		default:
			p.Interval = int(math.Round(float64(p.Interval) * float64(p.EaseFactor) / 100))
		}
	}

	reviewed := now
	p.LastReviewedAt = &reviewed
	p.NextReviewAt = now.AddDate(0, 0, p.Interval)
	return nil
}

// FlashcardRepository defines the interface for card content persistence.
type FlashcardRepository interface {
	GetFlashcardByID(ctx context.Context, id string) (*Flashcard, error)
	GetDueFlashcards(ctx context.Context, userID string, now time.Time, limit int) ([]Flashcard, error)
	SaveFlashcard(ctx context.Context, card *Flashcard) error
}

// FlashcardProgressRepository persists per-pair scheduling state. Update must
// guard against concurrent reviews of the same pair with an optimistic check
// on UpdatedAt; it returns a CONFLICT DomainError when the row moved
// underneath the caller.
type FlashcardProgressRepository interface {
	GetProgress(ctx context.Context, userID, flashcardID string) (*FlashcardProgress, error)
	CreateProgress(ctx context.Context, progress *FlashcardProgress) error
	UpdateProgress(ctx context.Context, progress *FlashcardProgress, priorUpdatedAt time.Time) error
}
