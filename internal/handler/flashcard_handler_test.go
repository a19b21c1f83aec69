package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"skillquest/internal/domain"
	"skillquest/internal/handler"
	"skillquest/internal/middleware"
	"skillquest/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

// --- Manual Mocks ---

// MockReviewService
type MockReviewService struct {
	RecordReviewFunc func(ctx context.Context, userID, flashcardID string, quality int) (*service.ReviewResult, error)
	GetDueCardsFunc  func(ctx context.Context, userID string, limit int) ([]domain.Flashcard, error)
}

func (m *MockReviewService) RecordReview(ctx context.Context, userID, flashcardID string, quality int) (*service.ReviewResult, error) {
	if m.RecordReviewFunc != nil {
		return m.RecordReviewFunc(ctx, userID, flashcardID, quality)
	}
	panic("MockReviewService.RecordReviewFunc not implemented")
}

func (m *MockReviewService) GetDueCards(ctx context.Context, userID string, limit int) ([]domain.Flashcard, error) {
	if m.GetDueCardsFunc != nil {
		return m.GetDueCardsFunc(ctx, userID, limit)
	}
	panic("MockReviewService.GetDueCardsFunc not implemented")
}

const testCardID = "01HTESTCARD0000000000000AB"

func newFlashcardApp(mockSvc *MockReviewService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	h := handler.NewFlashcardHandler(mockSvc)

	// Stands in for the auth middleware.
	withUser := func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDKey, "user1")
		return c.Next()
	}
	app.Get("/flashcards/due", withUser, h.GetDueCards)
	app.Post("/flashcards/review", withUser, h.SubmitReview)
	return app
}

func TestFlashcardHandler_SubmitReview(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockSvc := &MockReviewService{
			RecordReviewFunc: func(ctx context.Context, userID, flashcardID string, quality int) (*service.ReviewResult, error) {
				assert.Equal(t, "user1", userID)
				assert.Equal(t, testCardID, flashcardID)
				assert.Equal(t, 5, quality)
				return &service.ReviewResult{
					Progress: &domain.FlashcardProgress{
						UserID:       userID,
						FlashcardID:  flashcardID,
						EaseFactor:   260,
						Interval:     1,
						Repetitions:  1,
						NextReviewAt: time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
					},
					AwardedXP: 10,
				}, nil
			},
		}
		app := newFlashcardApp(mockSvc)

		body, _ := json.Marshal(map[string]interface{}{"flashcard_id": testCardID, "quality": 5})
		req := httptest.NewRequest("POST", "/flashcards/review", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)

		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var parsed map[string]interface{}
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		assert.Equal(t, testCardID, parsed["flashcard_id"])
		assert.Equal(t, float64(260), parsed["ease_factor"])
		assert.Equal(t, float64(1), parsed["interval_days"])
	})

	t.Run("InvalidQuality", func(t *testing.T) {
		app := newFlashcardApp(&MockReviewService{})

		body, _ := json.Marshal(map[string]interface{}{"flashcard_id": testCardID, "quality": 9})
		req := httptest.NewRequest("POST", "/flashcards/review", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)

		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var parsed middleware.ValidationErrorResponse
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
		assert.Equal(t, string(domain.CodeValidation), parsed.Code)
		assert.Len(t, parsed.Errors, 1)
		assert.Equal(t, "quality", parsed.Errors[0].Field)
	})

	t.Run("UnknownCard", func(t *testing.T) {
		mockSvc := &MockReviewService{
			RecordReviewFunc: func(ctx context.Context, userID, flashcardID string, quality int) (*service.ReviewResult, error) {
				return nil, domain.NewNotFoundError("flashcard not found")
			},
		}
		app := newFlashcardApp(mockSvc)

		body, _ := json.Marshal(map[string]interface{}{"flashcard_id": testCardID, "quality": 3})
		req := httptest.NewRequest("POST", "/flashcards/review", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req, -1)

		assert.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestFlashcardHandler_GetDueCards(t *testing.T) {
	mockSvc := &MockReviewService{
		GetDueCardsFunc: func(ctx context.Context, userID string, limit int) ([]domain.Flashcard, error) {
			assert.Equal(t, 5, limit)
			return []domain.Flashcard{
				{ID: "card1", Front: "What is a goroutine?", Back: "A lightweight thread"},
				{ID: "card2", Front: "What does cap() return?"},
			}, nil
		},
	}
	app := newFlashcardApp(mockSvc)

	req := httptest.NewRequest("GET", "/flashcards/due?limit=5", nil)

	resp, err := app.Test(req, -1)

	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var parsed struct {
		Cards []map[string]interface{} `json:"cards"`
	}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	assert.Len(t, parsed.Cards, 2)
	assert.Equal(t, "card1", parsed.Cards[0]["flashcard_id"])
}
