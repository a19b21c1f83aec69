package models

import (
	"database/sql"
	"time"
)

// User represents a user row.
type User struct {
	ID             string         `db:"ID"` // ULID
	Email          string         `db:"EMAIL"`
	PasswordHash   string         `db:"PASSWORD_HASH"`
	Name           sql.NullString `db:"NAME"`
	Role           string         `db:"ROLE"`
	TotalXP        int            `db:"TOTAL_XP"`
	StreakDays     int            `db:"STREAK_DAYS"`
	LastActivityAt sql.NullTime   `db:"LAST_ACTIVITY_AT"`
	CreatedAt      time.Time      `db:"CREATED_AT"`
	UpdatedAt      time.Time      `db:"UPDATED_AT"`
	DeletedAt      sql.NullTime   `db:"DELETED_AT"`
}
