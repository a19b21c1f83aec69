package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReview_InvalidQuality(t *testing.T) {
	now := time.Now()
	p := NewFlashcardProgress("user1", "card1", now)

	assert.Error(t, p.RecordReview(-1, now))
	assert.Error(t, p.RecordReview(6, now))

	var domainErr *DomainError
	err := p.RecordReview(7, now)
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeInvalidInput, domainErr.Code)
}

func TestRecordReview_FailedRecallResets(t *testing.T) {
	now := time.Now()
	p := NewFlashcardProgress("user1", "card1", now)

	// Build up some history first.
	require.NoError(t, p.RecordReview(5, now))
	require.NoError(t, p.RecordReview(5, now))
	require.Equal(t, 2, p.Repetitions)
	require.Equal(t, SecondInterval, p.Interval)

	require.NoError(t, p.RecordReview(0, now))
	assert.Equal(t, 0, p.Repetitions)
	assert.Equal(t, 1, p.Interval)
	assert.Equal(t, now.AddDate(0, 0, 1), p.NextReviewAt)
}

func TestRecordReview_PerfectRecallSequence(t *testing.T) {
	now := time.Now()
	p := NewFlashcardProgress("user1", "card1", now)

	require.NoError(t, p.RecordReview(5, now))
	assert.Equal(t, 1, p.Repetitions)
	assert.Equal(t, 1, p.Interval)
	assert.Equal(t, 260, p.EaseFactor)

	require.NoError(t, p.RecordReview(5, now))
	assert.Equal(t, 2, p.Repetitions)
	assert.Equal(t, 6, p.Interval)
	assert.Equal(t, 270, p.EaseFactor)

	require.NoError(t, p.RecordReview(5, now))
	assert.Equal(t, 3, p.Repetitions)
	// round(6 * 280 / 100) with the ease adjusted before the interval grows.
	assert.Equal(t, 17, p.Interval)
	assert.Equal(t, now.AddDate(0, 0, 17), p.NextReviewAt)
	require.NotNil(t, p.LastReviewedAt)
	assert.Equal(t, now, *p.LastReviewedAt)
}

func TestRecordReview_EaseFactorFloor(t *testing.T) {
	now := time.Now()
	p := NewFlashcardProgress("user1", "card1", now)

	for i := 0; i < 20; i++ {
		require.NoError(t, p.RecordReview(0, now))
		assert.GreaterOrEqual(t, p.EaseFactor, MinimumEase)
	}
	assert.Equal(t, MinimumEase, p.EaseFactor)
}

func TestRecordReview_HardRecallStillSucceeds(t *testing.T) {
	now := time.Now()
	p := NewFlashcardProgress("user1", "card1", now)

	// quality 3 keeps the streak alive but drags the ease factor down.
	require.NoError(t, p.RecordReview(3, now))
	assert.Equal(t, 1, p.Repetitions)
	assert.Equal(t, 1, p.Interval)
	assert.Equal(t, 236, p.EaseFactor)
}

func TestFlashcardProgress_IsDue(t *testing.T) {
	now := time.Now()
	p := NewFlashcardProgress("user1", "card1", now)
	assert.True(t, p.IsDue(now), "fresh progress is due immediately")

	require.NoError(t, p.RecordReview(5, now))
	assert.False(t, p.IsDue(now))
	assert.True(t, p.IsDue(now.AddDate(0, 0, 1)))
}

func TestFlashcardValidate(t *testing.T) {
	card := &Flashcard{Front: "bonjour", Back: "hello"}
	assert.NoError(t, card.Validate())

	assert.Error(t, (&Flashcard{Back: "hello"}).Validate())
	assert.Error(t, (&Flashcard{Front: "bonjour"}).Validate())
}
