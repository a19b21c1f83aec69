package validation

import (
	"regexp"
	"strings"

	"skillquest/internal/domain"
)

const maxAnswerLength = 10000

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateID validates that a path or body parameter is a well-formed ULID.
func (v *Validator) ValidateID(field, id string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(id) == "" {
		errors = append(errors, domain.NewMissingFieldError(field))
	} else if !isValidULID(id) {
		errors = append(errors, domain.NewInvalidFormatError(field, id))
	}

	return errors
}

// ValidateSubmitAnswerRequest validates an item answer submission.
func (v *Validator) ValidateSubmitAnswerRequest(itemID, answer string) domain.ValidationErrors {
	errors := v.ValidateID("item_id", itemID)

	if strings.TrimSpace(answer) == "" {
		errors = append(errors, domain.NewMissingFieldError("answer"))
	} else if len(answer) > maxAnswerLength {
		errors = append(errors, domain.NewFieldOutOfRangeError("answer", len(answer), 1, maxAnswerLength))
	}

	return errors
}

// ValidateReviewRequest validates a flashcard review submission.
func (v *Validator) ValidateReviewRequest(flashcardID string, quality int) domain.ValidationErrors {
	errors := v.ValidateID("flashcard_id", flashcardID)

	if quality < domain.MinReviewQuality || quality > domain.MaxReviewQuality {
		errors = append(errors, domain.NewFieldOutOfRangeError("quality", quality,
			domain.MinReviewQuality, domain.MaxReviewQuality))
	}

	return errors
}

// ValidateAwardXPRequest validates a manual XP grant.
func (v *Validator) ValidateAwardXPRequest(userID string, amount int, reason string) domain.ValidationErrors {
	errors := v.ValidateID("user_id", userID)

	if amount <= 0 {
		errors = append(errors, domain.NewFieldOutOfRangeError("amount", amount, 1, 1000000))
	}
	if strings.TrimSpace(reason) == "" {
		errors = append(errors, domain.NewMissingFieldError("reason"))
	}

	return errors
}

// ValidateCreateTestRequest validates the authoring payload for a new test.
func (v *Validator) ValidateCreateTestRequest(title, slug string, durationMinutes, maxAttempts int) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(title) == "" {
		errors = append(errors, domain.NewMissingFieldError("title"))
	} else if len(title) > 200 {
		errors = append(errors, domain.NewFieldOutOfRangeError("title", len(title), 1, 200))
	}

	if strings.TrimSpace(slug) == "" {
		errors = append(errors, domain.NewMissingFieldError("slug"))
	} else if !isValidSlug(slug) {
		errors = append(errors, domain.NewInvalidFormatError("slug", slug))
	}

	if durationMinutes < 0 {
		errors = append(errors, domain.NewFieldOutOfRangeError("duration_minutes", durationMinutes, 0, 1440))
	}
	if maxAttempts < 1 {
		errors = append(errors, domain.NewFieldOutOfRangeError("max_attempts", maxAttempts, 1, 100))
	}

	return errors
}

// ValidateGradeRequest validates a manual grading payload. The upper score
// bound depends on the item and is enforced by the service.
func (v *Validator) ValidateGradeRequest(submissionID string, score int) domain.ValidationErrors {
	errors := v.ValidateID("submission_id", submissionID)

	if score < 0 {
		errors = append(errors, domain.NewFieldOutOfRangeError("score", score, 0, 1000000))
	}

	return errors
}

// Helper functions for validation

// isValidULID checks if the string is a valid ULID format
func isValidULID(s string) bool {
	// ULID is 26 characters long, base32 encoded
	if len(s) != 26 {
		return false
	}
	// Check if all characters are valid base32 (Crockford's Base32)
	validULID := regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)
	return validULID.MatchString(s)
}

// isValidSlug checks if the slug format is valid
func isValidSlug(s string) bool {
	// Allow lowercase alphanumeric and hyphens, 1-100 characters
	if len(s) == 0 || len(s) > 100 {
		return false
	}
	validSlug := regexp.MustCompile(`^[a-z0-9-]+$`)
	return validSlug.MatchString(s)
}
