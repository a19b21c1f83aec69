package domain

import (
	"context"
	"math"
	"sort"
	"time"
)

// Progression constants. The XP needed to clear level n grows geometrically;
// the cumulative thresholds are precomputed once and seeded into the levels
// table, never recalculated per request.
const (
	BaseXP           = 100
	LevelExponent    = 1.5
	DefaultEase      = 250
	MinimumEase      = 130
	FirstInterval    = 1
	SecondInterval   = 6
	MinReviewQuality = 0
	MaxReviewQuality = 5
)

// Level is an immutable reference row describing one rung of the progression
// ladder. ExpRequired is the cumulative XP needed to reach it.
type Level struct {
	ID          string
	Number      int
	Name        string
	Description string
	ExpRequired int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the level
func (l *Level) Validate() error {
	if l.Number < 1 {
		return NewInvalidInputError("level number must be at least 1")
	}
	if l.Name == "" {
		return NewInvalidInputError("name is required")
	}
	if l.ExpRequired < 0 {
		return NewInvalidInputError("exp_required must not be negative")
	}
	if l.Number == 1 && l.ExpRequired != 0 {
		return NewInvalidInputError("level 1 must require 0 XP")
	}
	return nil
}

// LevelCost returns the XP required to advance from level to level+1,
// round(BaseXP * level^1.5).
func LevelCost(level int) (int, error) {
	if level < 1 {
		return 0, NewInvalidInputError("level must be at least 1")
	}
	return int(math.Round(BaseXP * math.Pow(float64(level), LevelExponent))), nil
}

// CumulativeXP returns the total XP required to reach the given level from
// zero. Levels at or below 1 cost nothing. Only the seed tool calls this; at
// runtime the persisted levels table answers in O(1).
func CumulativeXP(level int) int {
	total := 0
	for i := 1; i < level; i++ {
		cost, _ := LevelCost(i)
		total += cost
	}
	return total
}

// ResolveLevel returns the highest level whose ExpRequired does not exceed
// totalXP. levels must be sorted by Number ascending. A totalXP beyond the
// last threshold resolves to the maximum defined level.
func ResolveLevel(totalXP int, levels []Level) (Level, error) {
	if len(levels) == 0 {
		return Level{}, NewNotFoundError("no levels defined")
	}
	// First index whose threshold exceeds totalXP; the level before it is the
	// highest one already reached.
	idx := sort.Search(len(levels), func(i int) bool {
		return levels[i].ExpRequired > totalXP
	})
	if idx == 0 {
		return levels[0], nil
	}
	return levels[idx-1], nil
}

// LevelRepository defines the interface for level reference data persistence.
type LevelRepository interface {
	// GetAllLevels returns every level ordered by level number ascending.
	GetAllLevels(ctx context.Context) ([]Level, error)

	// GetLevelByNumber retrieves a single level, nil when absent.
	GetLevelByNumber(ctx context.Context, number int) (*Level, error)

	// SaveLevel inserts or replaces a level row (seed tool only).
	SaveLevel(ctx context.Context, level *Level) error
}
