package handler

import (
	"skillquest/internal/dto"
	"skillquest/internal/middleware"
	"skillquest/internal/service"
	"skillquest/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ProgressionHandler handles XP, level and achievement HTTP requests.
type ProgressionHandler struct {
	progression service.ProgressionService
	leaderboard service.LeaderboardService
	validator   *validation.Validator
}

// NewProgressionHandler creates a new ProgressionHandler instance
func NewProgressionHandler(progression service.ProgressionService, leaderboard service.LeaderboardService) *ProgressionHandler {
	return &ProgressionHandler{
		progression: progression,
		leaderboard: leaderboard,
		validator:   validation.NewValidator(),
	}
}

// GetMyProgression godoc
// @Summary Get the caller's progression
// @Description Returns total XP, current level, streak and the XP still needed for the next level.
// @Tags progression
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} dto.ProgressionResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /progression/me [get]
func (h *ProgressionHandler) GetMyProgression(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.UserIDKey).(string)

	info, err := h.progression.GetProgression(c.Context(), userID)
	if err != nil {
		return err
	}

	resp := dto.ProgressionResponse{
		UserID:     info.UserID,
		TotalXP:    info.TotalXP,
		Level:      info.Level.Number,
		LevelName:  info.Level.Name,
		StreakDays: info.StreakDays,
	}
	if info.NextLevel != nil {
		resp.NextLevelAt = info.NextLevel.ExpRequired
		resp.XPToNextLevel = info.XPToNext
	}
	if h.leaderboard != nil {
		if rank, err := h.leaderboard.RankOf(c.Context(), userID); err == nil {
			resp.LeaderboardPos = rank
		}
	}
	return c.JSON(resp)
}

// AwardXP godoc
// @Summary Grant XP to a user
// @Description Manually awards XP, for activities graded outside the system. Teacher or admin only.
// @Tags progression
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body dto.AwardXPRequest true "Award payload"
// @Success 200 {object} dto.AwardXPResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /progression/award [post]
func (h *ProgressionHandler) AwardXP(c *fiber.Ctx) error {
	var req dto.AwardXPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}
	if errs := h.validator.ValidateAwardXPRequest(req.UserID, req.Amount, req.Reason); len(errs) > 0 {
		return errs
	}

	result, err := h.progression.AwardXP(c.Context(), req.UserID, req.Amount, req.Reason)
	if err != nil {
		return err
	}

	return c.JSON(dto.AwardXPResponse{
		TotalXP:   result.TotalXP,
		Level:     result.Level.Number,
		LeveledUp: result.LeveledUp,
	})
}

// ListAchievements godoc
// @Summary List achievements
// @Description Returns the badge catalogue with the caller's unlock state.
// @Tags progression
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {array} dto.AchievementResponse
// @Router /progression/achievements [get]
func (h *ProgressionHandler) ListAchievements(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.UserIDKey).(string)

	statuses, err := h.progression.ListAchievements(c.Context(), userID)
	if err != nil {
		return err
	}

	resp := make([]dto.AchievementResponse, len(statuses))
	for i, s := range statuses {
		resp[i] = dto.AchievementResponse{
			ID:          s.Achievement.ID,
			Name:        s.Achievement.Name,
			Description: s.Achievement.Description,
			IconURL:     s.Achievement.IconURL,
			XPReward:    s.Achievement.XPReward,
			Unlocked:    s.Unlocked,
		}
	}
	return c.JSON(resp)
}
