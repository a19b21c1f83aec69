package service

import (
	"context"
	"errors"
	"fmt"

	"skillquest/internal/domain"
	"skillquest/internal/logger"

	"go.uber.org/zap"
)

// XP granted per review by recall quality. Failed recalls still pay a little
// for showing up.
var reviewXPByQuality = [domain.MaxReviewQuality + 1]int{2, 2, 2, 5, 8, 10}

// ReviewService runs spaced-repetition reviews over the flashcard deck.
type ReviewService interface {
	// RecordReview applies one review of the given quality (0-5), persists
	// the rescheduled state and awards review XP.
	RecordReview(ctx context.Context, userID, flashcardID string, quality int) (*ReviewResult, error)

	// GetDueCards returns the cards the user should review now, never-seen
	// cards first.
	GetDueCards(ctx context.Context, userID string, limit int) ([]domain.Flashcard, error)
}

// ReviewResult reports the new scheduling state after a review.
type ReviewResult struct {
	Progress  *domain.FlashcardProgress
	AwardedXP int
}

type reviewServiceImpl struct {
	flashcardRepo domain.FlashcardRepository
	progressRepo  domain.FlashcardProgressRepository
	progression   ProgressionService
	clock         domain.Clock
}

// NewReviewService creates a new instance of ReviewService.
func NewReviewService(
	flashcardRepo domain.FlashcardRepository,
	progressRepo domain.FlashcardProgressRepository,
	progression ProgressionService,
	clock domain.Clock,
) ReviewService {
	return &reviewServiceImpl{
		flashcardRepo: flashcardRepo,
		progressRepo:  progressRepo,
		progression:   progression,
		clock:         clock,
	}
}

func (s *reviewServiceImpl) RecordReview(ctx context.Context, userID, flashcardID string, quality int) (*ReviewResult, error) {
	appLogger := logger.Get()

	if quality < 0 || quality > domain.MaxReviewQuality {
		return nil, domain.NewInvalidInputError("quality must be between 0 and 5")
	}

	card, err := s.flashcardRepo.GetFlashcardByID(ctx, flashcardID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flashcard: %w", err)
	}
	if card == nil {
		return nil, domain.NewNotFoundError(fmt.Sprintf("flashcard %s not found", flashcardID))
	}

	progress, err := s.applyReview(ctx, userID, flashcardID, quality)
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == domain.CodeConflict {
			// Another review of the same pair landed first. Re-read and apply
			// once more on top of the fresh state.
			appLogger.Debug("Concurrent review detected, retrying",
				zap.String("userID", userID),
				zap.String("flashcardID", flashcardID))
			progress, err = s.applyReview(ctx, userID, flashcardID, quality)
		}
		if err != nil {
			return nil, err
		}
	}

	awarded := reviewXPByQuality[quality]
	if s.progression != nil {
		if _, err := s.progression.AwardXP(ctx, userID, awarded, "flashcard_review"); err != nil {
			// The review already stuck; losing the XP is recoverable and
			// better than failing the whole request.
			appLogger.Warn("Review XP award failed",
				zap.String("userID", userID),
				zap.Error(err))
		}
	}

	appLogger.Info("Flashcard reviewed",
		zap.String("userID", userID),
		zap.String("flashcardID", flashcardID),
		zap.Int("quality", quality),
		zap.Int("interval", progress.Interval),
		zap.Int("easeFactor", progress.EaseFactor))
	return &ReviewResult{Progress: progress, AwardedXP: awarded}, nil
}

// applyReview runs one read-modify-write cycle of the scheduling state. The
// optimistic guard in UpdateProgress surfaces concurrent writers as CONFLICT.
func (s *reviewServiceImpl) applyReview(ctx context.Context, userID, flashcardID string, quality int) (*domain.FlashcardProgress, error) {
	now := s.clock.Now()

	progress, err := s.progressRepo.GetProgress(ctx, userID, flashcardID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress: %w", err)
	}

	if progress == nil {
		progress = domain.NewFlashcardProgress(userID, flashcardID, now)
		if err := progress.RecordReview(quality, now); err != nil {
			return nil, err
		}
		progress.UpdatedAt = now
		if err := s.progressRepo.CreateProgress(ctx, progress); err != nil {
			return nil, err
		}
		return progress, nil
	}

	prior := progress.UpdatedAt
	if err := progress.RecordReview(quality, now); err != nil {
		return nil, err
	}
	progress.UpdatedAt = now
	if err := s.progressRepo.UpdateProgress(ctx, progress, prior); err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *reviewServiceImpl) GetDueCards(ctx context.Context, userID string, limit int) ([]domain.Flashcard, error) {
	cards, err := s.flashcardRepo.GetDueFlashcards(ctx, userID, s.clock.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due flashcards: %w", err)
	}
	return cards, nil
}
