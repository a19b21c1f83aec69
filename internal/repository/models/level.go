package models

import (
	"database/sql"
	"time"
)

// Level represents one row of the seeded level ladder.
type Level struct {
	ID          string         `db:"ID"` // ULID
	LevelNumber int            `db:"LEVEL_NUMBER"`
	Name        string         `db:"NAME"`
	Description sql.NullString `db:"DESCRIPTION"`
	ExpRequired int            `db:"EXP_REQUIRED"`
	CreatedAt   time.Time      `db:"CREATED_AT"`
	UpdatedAt   time.Time      `db:"UPDATED_AT"`
}

// Achievement represents one row of the seeded achievement catalogue.
type Achievement struct {
	ID          string         `db:"ID"` // ULID
	Name        string         `db:"NAME"`
	Description sql.NullString `db:"DESCRIPTION"`
	IconURL     sql.NullString `db:"ICON_URL"`
	XPReward    int            `db:"XP_REWARD"`
	Criterion   string         `db:"CRITERION"`
	Threshold   int            `db:"THRESHOLD"`
	CreatedAt   time.Time      `db:"CREATED_AT"`
}

// UserAchievement records a single unlock.
type UserAchievement struct {
	UserID        string    `db:"USER_ID"`
	AchievementID string    `db:"ACHIEVEMENT_ID"`
	UnlockedAt    time.Time `db:"UNLOCKED_AT"`
}
