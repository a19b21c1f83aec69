package dto

import "time"

// ReviewRequest records a recall grade for a flashcard.
type ReviewRequest struct {
	FlashcardID string `json:"flashcard_id"`
	Quality     int    `json:"quality"`
}

// ReviewResponse is the updated scheduling state after a review.
type ReviewResponse struct {
	FlashcardID  string    `json:"flashcard_id"`
	EaseFactor   int       `json:"ease_factor"`
	Interval     int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// DueCardResponse is one card waiting for review.
type DueCardResponse struct {
	FlashcardID string `json:"flashcard_id"`
	Front       string `json:"front"`
	Back        string `json:"back,omitempty"`
}

// DueCardsResponse lists the cards due for a user.
type DueCardsResponse struct {
	Cards []DueCardResponse `json:"cards"`
}
