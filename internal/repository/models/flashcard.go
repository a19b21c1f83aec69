package models

import (
	"database/sql"
	"time"
)

// Flashcard represents a flashcard row.
type Flashcard struct {
	ID        string         `db:"ID"` // ULID
	DeckID    sql.NullString `db:"DECK_ID"`
	Front     string         `db:"FRONT"`
	Back      string         `db:"BACK"`
	CreatedAt time.Time      `db:"CREATED_AT"`
	UpdatedAt time.Time      `db:"UPDATED_AT"`
}

// UserFlashcardProgress is the SM-2 state row, one per (user, card) pair.
type UserFlashcardProgress struct {
	UserID         string       `db:"USER_ID"`
	FlashcardID    string       `db:"FLASHCARD_ID"`
	EaseFactor     int          `db:"EASE_FACTOR"` // centiunits, 250 == 2.5
	ReviewInterval int          `db:"REVIEW_INTERVAL"` // days; INTERVAL is reserved in Oracle
	Repetitions    int          `db:"REPETITIONS"`
	NextReviewAt   time.Time    `db:"NEXT_REVIEW_AT"`
	LastReviewedAt sql.NullTime `db:"LAST_REVIEWED_AT"`
	UpdatedAt      time.Time    `db:"UPDATED_AT"`
}
