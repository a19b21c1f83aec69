package dto

// LevelResponse represents a level in the API response
type LevelResponse struct {
	Number      int    `json:"level_number"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ExpRequired int    `json:"exp_required"`
}

// ProgressionResponse describes where a user stands on the level ladder.
type ProgressionResponse struct {
	UserID         string `json:"user_id"`
	TotalXP        int    `json:"total_xp"`
	Level          int    `json:"level"`
	LevelName      string `json:"level_name"`
	NextLevelAt    int    `json:"next_level_at,omitempty"`
	XPToNextLevel  int    `json:"xp_to_next_level,omitempty"`
	StreakDays     int    `json:"streak_days"`
	LeaderboardPos int    `json:"leaderboard_position,omitempty"`
}

// AwardXPRequest grants XP to a user for an activity.
type AwardXPRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// AwardXPResponse reports the outcome of an XP award.
type AwardXPResponse struct {
	TotalXP   int  `json:"total_xp"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveled_up"`
}

// LeaderboardEntryResponse is one row of a leaderboard.
type LeaderboardEntryResponse struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Score  int    `json:"score"`
}

// LeaderboardResponse is a ranked listing.
type LeaderboardResponse struct {
	Entries []LeaderboardEntryResponse `json:"entries"`
}

// AchievementResponse represents an unlockable badge in API responses.
type AchievementResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url,omitempty"`
	XPReward    int    `json:"xp_reward"`
	Unlocked    bool   `json:"unlocked"`
}
