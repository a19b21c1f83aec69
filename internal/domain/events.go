package domain

import (
	"context"
	"fmt"
	"time"
)

// EventType identifies a kind of domain event.
type EventType string

const (
	EventLevelUp             EventType = "level.up"
	EventAchievementUnlocked EventType = "achievement.unlocked"
)

// Event is an outbound notification emitted by the core. The transport that
// delivers it (push channel, websocket, queue) lives behind EventPublisher.
type Event struct {
	Type       EventType              `json:"type"`
	UserID     string                 `json:"user_id"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
}

// EventPublisher is the port for outbound event delivery. Publish must not
// block the calling request for longer than the context allows.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewLevelUpEvent builds the event emitted when a user reaches a new level.
func NewLevelUpEvent(userID string, level Level, now time.Time) Event {
	return Event{
		Type:       EventLevelUp,
		UserID:     userID,
		OccurredAt: now,
		Payload: map[string]interface{}{
			"level_number": level.Number,
			"name":         level.Name,
			"description":  level.Description,
			"message":      fmt.Sprintf("You've reached level %d: %s!", level.Number, level.Name),
		},
	}
}

// NewAchievementUnlockedEvent builds the event emitted when an achievement is
// unlocked for a user.
func NewAchievementUnlockedEvent(userID string, a Achievement, now time.Time) Event {
	return Event{
		Type:       EventAchievementUnlocked,
		UserID:     userID,
		OccurredAt: now,
		Payload: map[string]interface{}{
			"achievement_id": a.ID,
			"name":           a.Name,
			"description":    a.Description,
			"icon_url":       a.IconURL,
			"xp_reward":      a.XPReward,
			"message":        fmt.Sprintf("You've earned the '%s' achievement!", a.Name),
		},
	}
}
