package handler

import (
	"strconv"

	"skillquest/internal/dto"
	"skillquest/internal/middleware"
	"skillquest/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultLeaderboardSize = 10

// LeaderboardHandler serves XP ranking requests.
type LeaderboardHandler struct {
	leaderboard service.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler instance
func NewLeaderboardHandler(leaderboard service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top godoc
// @Summary Get the XP leaderboard
// @Description Returns the highest-ranked users by total XP.
// @Tags leaderboard
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "Number of entries, 1-100, default 10"
// @Success 200 {object} dto.LeaderboardResponse
// @Router /leaderboard [get]
func (h *LeaderboardHandler) Top(c *fiber.Ctx) error {
	limit := defaultLeaderboardSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
				Code: "INVALID_LIMIT", Message: "limit must be an integer between 1 and 100", Status: fiber.StatusBadRequest,
			})
		}
		limit = parsed
	}

	ranked, err := h.leaderboard.Top(c.Context(), limit)
	if err != nil {
		return err
	}

	resp := dto.LeaderboardResponse{Entries: make([]dto.LeaderboardEntryResponse, len(ranked))}
	for i, r := range ranked {
		resp.Entries[i] = dto.LeaderboardEntryResponse{
			Rank:   r.Rank,
			UserID: r.UserID,
			Name:   r.Name,
			Score:  r.Score,
		}
	}
	return c.JSON(resp)
}

// MyRank godoc
// @Summary Get the caller's leaderboard position
// @Tags leaderboard
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]int
// @Router /leaderboard/me [get]
func (h *LeaderboardHandler) MyRank(c *fiber.Ctx) error {
	userID, _ := c.Locals(middleware.UserIDKey).(string)

	rank, err := h.leaderboard.RankOf(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"rank": rank})
}
