package domain

import (
	"context"
	"time"
)

// Role grants a user their permission set.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// User represents a domain user object
type User struct {
	ID             string
	Email          string
	PasswordHash   string
	Name           string
	Role           Role
	TotalXP        int
	StreakDays     int
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// NewUser creates a new User instance
func NewUser(email, passwordHash, name string, role Role, now time.Time) *User {
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate validates the user
func (u *User) Validate() error {
	if u.Email == "" {
		return NewInvalidInputError("email is required")
	}
	if u.PasswordHash == "" {
		return NewInvalidInputError("password hash is required")
	}
	if !u.Role.Valid() {
		return NewInvalidInputError("role must be student, teacher or admin")
	}
	return nil
}

// TouchStreak updates the daily activity streak for an action happening at
// now: same-day activity keeps the streak, the next calendar day extends it,
// anything later restarts at 1.
func (u *User) TouchStreak(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if u.LastActivityAt == nil {
		u.StreakDays = 1
	} else {
		lastDay := u.LastActivityAt.Truncate(24 * time.Hour)
		switch day.Sub(lastDay) {
		case 0:
			// Another action on the same day, streak unchanged.
		case 24 * time.Hour:
			u.StreakDays++
		default:
			u.StreakDays = 1
		}
	}
	activity := now
	u.LastActivityAt = &activity
}

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error

	// AddXP atomically adds delta to the user's total and returns the new
	// total. Implementations update the row in place so two concurrent awards
	// cannot lose each other.
	AddXP(ctx context.Context, userID string, delta int) (int, error)
}
