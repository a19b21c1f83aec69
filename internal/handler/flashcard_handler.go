package handler

import (
	"strconv"

	"skillquest/internal/dto"
	"skillquest/internal/middleware"
	"skillquest/internal/service"
	"skillquest/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const defaultDueCardLimit = 20

// FlashcardHandler handles spaced-repetition HTTP requests.
type FlashcardHandler struct {
	reviews   service.ReviewService
	validator *validation.Validator
}

// NewFlashcardHandler creates a new FlashcardHandler instance
func NewFlashcardHandler(reviews service.ReviewService) *FlashcardHandler {
	return &FlashcardHandler{
		reviews:   reviews,
		validator: validation.NewValidator(),
	}
}

// GetDueCards godoc
// @Summary List flashcards due for review
// @Description Returns the caller's due cards, never-seen cards first.
// @Tags flashcards
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "Number of cards, 1-100, default 20"
// @Success 200 {object} dto.DueCardsResponse
// @Router /flashcards/due [get]
func (h *FlashcardHandler) GetDueCards(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.UserIDKey).(string)

	limit := defaultDueCardLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
				Code: "INVALID_LIMIT", Message: "limit must be an integer between 1 and 100", Status: fiber.StatusBadRequest,
			})
		}
		limit = parsed
	}

	cards, err := h.reviews.GetDueCards(c.Context(), userID, limit)
	if err != nil {
		return err
	}

	resp := dto.DueCardsResponse{Cards: make([]dto.DueCardResponse, len(cards))}
	for i, card := range cards {
		resp.Cards[i] = dto.DueCardResponse{
			FlashcardID: card.ID,
			Front:       card.Front,
			Back:        card.Back,
		}
	}
	return c.JSON(resp)
}

// SubmitReview godoc
// @Summary Record a flashcard review
// @Description Applies one recall grade (0-5) and returns the rescheduled state.
// @Tags flashcards
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body dto.ReviewRequest true "Review payload"
// @Success 200 {object} dto.ReviewResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /flashcards/review [post]
func (h *FlashcardHandler) SubmitReview(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.UserIDKey).(string)

	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}
	if errs := h.validator.ValidateReviewRequest(req.FlashcardID, req.Quality); len(errs) > 0 {
		return errs
	}

	result, err := h.reviews.RecordReview(c.Context(), userID, req.FlashcardID, req.Quality)
	if err != nil {
		return err
	}

	return c.JSON(dto.ReviewResponse{
		FlashcardID:  result.Progress.FlashcardID,
		EaseFactor:   result.Progress.EaseFactor,
		Interval:     result.Progress.Interval,
		Repetitions:  result.Progress.Repetitions,
		NextReviewAt: result.Progress.NextReviewAt,
	})
}
