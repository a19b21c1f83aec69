package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelCost(t *testing.T) {
	cost, err := LevelCost(1)
	assert.NoError(t, err)
	assert.Equal(t, 100, cost)

	cost, err = LevelCost(2)
	assert.NoError(t, err)
	assert.Equal(t, 283, cost)

	cost, err = LevelCost(5)
	assert.NoError(t, err)
	assert.Equal(t, 1118, cost)
}

func TestLevelCost_InvalidLevel(t *testing.T) {
	_, err := LevelCost(0)
	assert.Error(t, err)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeInvalidInput, domainErr.Code)

	_, err = LevelCost(-3)
	assert.Error(t, err)
}

func TestCumulativeXP(t *testing.T) {
	assert.Equal(t, 0, CumulativeXP(0))
	assert.Equal(t, 0, CumulativeXP(1))
	assert.Equal(t, 100, CumulativeXP(2))

	// Level 6 threshold is the sum of the first five level costs:
	// 100+283+520+800+1118.
	assert.Equal(t, 2821, CumulativeXP(6))
}

func TestCumulativeXP_DifferenceIsLevelCost(t *testing.T) {
	for level := 1; level <= 50; level++ {
		cost, err := LevelCost(level)
		require.NoError(t, err)
		assert.Equal(t, cost, CumulativeXP(level+1)-CumulativeXP(level), "level %d", level)
	}
}

func seedLevels(count int) []Level {
	now := time.Now()
	levels := make([]Level, count)
	for i := 0; i < count; i++ {
		levels[i] = Level{
			Number:      i + 1,
			Name:        "Level",
			ExpRequired: CumulativeXP(i + 1),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return levels
}

func TestResolveLevel_BoundaryExactness(t *testing.T) {
	levels := seedLevels(10)
	for _, lvl := range levels {
		resolved, err := ResolveLevel(lvl.ExpRequired, levels)
		require.NoError(t, err)
		assert.Equal(t, lvl.Number, resolved.Number)
	}
}

func TestResolveLevel(t *testing.T) {
	levels := seedLevels(6)

	resolved, err := ResolveLevel(0, levels)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Number)

	// Just below the level 2 threshold.
	resolved, err = ResolveLevel(99, levels)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved.Number)

	resolved, err = ResolveLevel(100, levels)
	require.NoError(t, err)
	assert.Equal(t, 2, resolved.Number)

	// Beyond every defined threshold the max level is returned.
	resolved, err = ResolveLevel(1_000_000, levels)
	require.NoError(t, err)
	assert.Equal(t, 6, resolved.Number)
}

func TestResolveLevel_NoLevels(t *testing.T) {
	_, err := ResolveLevel(500, nil)
	assert.Error(t, err)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, CodeNotFound, domainErr.Code)
}

func TestLevelValidate(t *testing.T) {
	now := time.Now()
	level := &Level{Number: 1, Name: "Novice", ExpRequired: 0, CreatedAt: now, UpdatedAt: now}
	assert.NoError(t, level.Validate())

	level.ExpRequired = 10
	assert.Error(t, level.Validate(), "level 1 must start at zero XP")

	level = &Level{Number: 0, Name: "Broken"}
	assert.Error(t, level.Validate())

	level = &Level{Number: 2, Name: "", ExpRequired: 100}
	assert.Error(t, level.Validate())
}
