package handler

import (
	"strconv"

	"skillquest/internal/domain"
	"skillquest/internal/dto"
	"skillquest/internal/middleware"
	"skillquest/internal/service"
	"skillquest/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// TestHandler handles the test lifecycle HTTP requests, from authoring
// through attempts and grading.
type TestHandler struct {
	tests     service.TestService
	validator *validation.Validator
}

// NewTestHandler creates a new TestHandler instance
func NewTestHandler(tests service.TestService) *TestHandler {
	return &TestHandler{
		tests:     tests,
		validator: validation.NewValidator(),
	}
}

func toTestResponse(test *domain.Test) dto.TestResponse {
	return dto.TestResponse{
		ID:              test.ID,
		Title:           test.Title,
		Slug:            test.Slug,
		Status:          string(test.Status),
		DurationMinutes: test.DurationMinutes,
		TotalPoints:     test.TotalPoints,
		StartTime:       test.StartTime,
		EndTime:         test.EndTime,
		MaxAttempts:     test.MaxAttempts,
	}
}

func toAttemptResponse(attempt *domain.TestAttempt) dto.AttemptResponse {
	return dto.AttemptResponse{
		ID:               attempt.ID,
		TestID:           attempt.TestID,
		AttemptNumber:    attempt.AttemptNumber,
		Status:           string(attempt.Status),
		StartedAt:        attempt.StartedAt,
		SubmittedAt:      attempt.SubmittedAt,
		TimeSpentMinutes: attempt.TimeSpentMinutes,
		TotalScore:       attempt.TotalScore,
	}
}

func toSubmissionResponse(sub *domain.TestItemSubmission) dto.SubmissionResponse {
	return dto.SubmissionResponse{
		ID:         sub.ID,
		TestItemID: sub.TestItemID,
		Answer:     sub.Answer,
		Score:      sub.Score,
		IsCorrect:  sub.IsCorrect,
		Feedback:   sub.Feedback,
	}
}

// CreateTest godoc
// @Summary Create a draft test
// @Tags tests
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body dto.CreateTestRequest true "Test payload"
// @Success 201 {object} dto.TestResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *fiber.Ctx) error {
	teacherID, _ := c.Locals(middleware.UserIDKey).(string)

	var req dto.CreateTestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}
	if req.MaxAttempts == 0 {
		req.MaxAttempts = 1
	}
	if errs := h.validator.ValidateCreateTestRequest(req.Title, req.Slug, req.DurationMinutes, req.MaxAttempts); len(errs) > 0 {
		return errs
	}

	test, err := h.tests.CreateTest(c.Context(), teacherID, &domain.Test{
		Title:            req.Title,
		Slug:             req.Slug,
		CourseID:         req.CourseID,
		DurationMinutes:  req.DurationMinutes,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		MaxAttempts:      req.MaxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
		AllowReview:      req.AllowReview,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTestResponse(test))
}

// AddItem godoc
// @Summary Add an item to a draft test
// @Tags tests
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Param body body dto.AddItemRequest true "Item payload"
// @Success 201 {object} dto.TestItemResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/items [post]
func (h *TestHandler) AddItem(c *fiber.Ctx) error {
	teacherID, _ := c.Locals(middleware.UserIDKey).(string)
	testID := c.Params("id")

	var req dto.AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}

	item, err := h.tests.AddItem(c.Context(), teacherID, testID, &domain.TestItem{
		Kind:      domain.ItemKind(req.Kind),
		ItemRefID: req.ItemRefID,
		Position:  req.Position,
		Points:    req.Points,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TestItemResponse{
		ID:        item.ID,
		Kind:      string(item.Kind),
		ItemRefID: item.ItemRefID,
		Position:  item.Position,
		Points:    item.Points,
	})
}

// AssignStudent godoc
// @Summary Assign a student to a test
// @Tags tests
// @Accept json
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Param body body dto.AssignStudentRequest true "Roster payload"
// @Success 204
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/students [post]
func (h *TestHandler) AssignStudent(c *fiber.Ctx) error {
	teacherID, _ := c.Locals(middleware.UserIDKey).(string)
	testID := c.Params("id")

	var req dto.AssignStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}
	if errs := h.validator.ValidateID("student_id", req.StudentID); len(errs) > 0 {
		return errs
	}

	if err := h.tests.AssignStudent(c.Context(), teacherID, testID, req.StudentID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// transitionHandler returns a handler that moves a test to the target status.
func (h *TestHandler) transitionHandler(fn func(c *fiber.Ctx, teacherID, testID string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		teacherID, _ := c.Locals(middleware.UserIDKey).(string)
		if err := fn(c, teacherID, c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ScheduleTest godoc
// @Summary Publish a draft test to its assigned students
// @Tags tests
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Success 204
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/schedule [post]
func (h *TestHandler) ScheduleTest() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, teacherID, testID string) error {
		return h.tests.ScheduleTest(c.Context(), teacherID, testID)
	})
}

// ActivateTest godoc
// @Summary Open a scheduled test for attempts
// @Tags tests
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Success 204
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/activate [post]
func (h *TestHandler) ActivateTest() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, teacherID, testID string) error {
		return h.tests.ActivateTest(c.Context(), teacherID, testID)
	})
}

// CloseTest godoc
// @Summary Close a test and finalize running attempts
// @Tags tests
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Success 204
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/close [post]
func (h *TestHandler) CloseTest() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, teacherID, testID string) error {
		return h.tests.CloseTest(c.Context(), teacherID, testID)
	})
}

// ArchiveTest godoc
// @Summary Archive a test
// @Tags tests
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Success 204
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/archive [post]
func (h *TestHandler) ArchiveTest() fiber.Handler {
	return h.transitionHandler(func(c *fiber.Ctx, teacherID, testID string) error {
		return h.tests.ArchiveTest(c.Context(), teacherID, testID)
	})
}

// GetTest godoc
// @Summary Get a test with its items
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Success 200 {object} dto.TestDetailResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *fiber.Ctx) error {
	test, items, err := h.tests.GetTest(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	resp := dto.TestDetailResponse{
		TestResponse: toTestResponse(test),
		Items:        make([]dto.TestItemResponse, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = dto.TestItemResponse{
			ID:        item.ID,
			Kind:      string(item.Kind),
			ItemRefID: item.ItemRefID,
			Position:  item.Position,
			Points:    item.Points,
		}
	}
	return c.JSON(resp)
}

// TestLeaderboard godoc
// @Summary Get the per-test leaderboard
// @Description Ranks students by their best graded score. Abandoned attempts never appear.
// @Tags tests
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Param limit query int false "Number of entries, 1-100, default 10"
// @Success 200 {object} dto.LeaderboardResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /tests/{id}/leaderboard [get]
func (h *TestHandler) TestLeaderboard(c *fiber.Ctx) error {
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

	entries, err := h.tests.GetTestLeaderboard(c.Context(), c.Params("id"), limit)
	if err != nil {
		return err
	}

	resp := dto.LeaderboardResponse{Entries: make([]dto.LeaderboardEntryResponse, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = dto.LeaderboardEntryResponse{
			Rank:   i + 1,
			UserID: e.StudentID,
			Score:  e.BestScore,
		}
	}
	return c.JSON(resp)
}

// StartAttempt godoc
// @Summary Start or resume an attempt
// @Description Opens a new numbered attempt, or returns the running one.
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Test ID"
// @Success 201 {object} dto.AttemptResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /tests/{id}/attempts [post]
func (h *TestHandler) StartAttempt(c *fiber.Ctx) error {
	studentID, _ := c.Locals(middleware.UserIDKey).(string)

	attempt, err := h.tests.StartAttempt(c.Context(), c.Params("id"), studentID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toAttemptResponse(attempt))
}

// SubmitAnswer godoc
// @Summary Submit an answer to one item
// @Description Records or overwrites the answer; it stays ungraded until the attempt is submitted.
// @Tags attempts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Attempt ID"
// @Param body body dto.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 400 {object} middleware.ValidationErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /attempts/{id}/answers [post]
func (h *TestHandler) SubmitAnswer(c *fiber.Ctx) error {
	studentID, _ := c.Locals(middleware.UserIDKey).(string)
	attemptID := c.Params("id")

	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}
	if errs := h.validator.ValidateSubmitAnswerRequest(req.TestItemID, req.Answer); len(errs) > 0 {
		return errs
	}

	submission, err := h.tests.SubmitItemAnswer(c.Context(), attemptID, studentID, req.TestItemID, req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(toSubmissionResponse(submission))
}

// SubmitAttempt godoc
// @Summary Submit an attempt for grading
// @Description Auto-grades quiz and coding items; essays wait for a teacher.
// @Tags attempts
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Attempt ID"
// @Success 200 {object} dto.AttemptResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *TestHandler) SubmitAttempt(c *fiber.Ctx) error {
	studentID, _ := c.Locals(middleware.UserIDKey).(string)

	attempt, err := h.tests.SubmitTest(c.Context(), c.Params("id"), studentID)
	if err != nil {
		return err
	}
	return c.JSON(toAttemptResponse(attempt))
}

// GradeSubmission godoc
// @Summary Grade one submission
// @Description Records a manual score; the attempt settles to graded once every item is scored.
// @Tags grading
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Submission ID"
// @Param body body dto.GradeRequest true "Grade payload"
// @Success 200 {object} dto.SubmissionResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Router /submissions/{id}/grade [post]
func (h *TestHandler) GradeSubmission(c *fiber.Ctx) error {
	graderID, _ := c.Locals(middleware.UserIDKey).(string)
	submissionID := c.Params("id")

	var req dto.GradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(middleware.ErrorResponse{
			Code: "INVALID_REQUEST_BODY", Message: "Invalid request body", Status: fiber.StatusBadRequest,
		})
	}
	if errs := h.validator.ValidateGradeRequest(submissionID, req.Score); len(errs) > 0 {
		return errs
	}

	submission, err := h.tests.GradeSubmission(c.Context(), graderID, submissionID, req.Score, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(toSubmissionResponse(submission))
}

// SuggestGrade godoc
// @Summary Ask the essay assistant for a grading suggestion
// @Description Advisory only; nothing is persisted until the teacher grades.
// @Tags grading
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Submission ID"
// @Success 200 {object} dto.EssaySuggestionResponse
// @Failure 503 {object} middleware.ErrorResponse
// @Router /submissions/{id}/suggest [get]
func (h *TestHandler) SuggestGrade(c *fiber.Ctx) error {
	submissionID := c.Params("id")

	suggestion, err := h.tests.SuggestEssayGrade(c.Context(), submissionID)
	if err != nil {
		return err
	}
	return c.JSON(dto.EssaySuggestionResponse{
		SubmissionID:   submissionID,
		SuggestedScore: suggestion.SuggestedScore,
		Feedback:       suggestion.Feedback,
	})
}
