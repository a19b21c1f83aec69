// @title SkillQuest API
// @version 1.0
// @description Gamified learning backend: XP progression, spaced-repetition flashcards and proctored tests.
// @host localhost:8090
// @BasePath /api
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "skillquest/cmd/api/docs"
	"skillquest/internal/adapter"
	"skillquest/internal/adapter/evaluator"
	"skillquest/internal/cache"
	"skillquest/internal/config"
	"skillquest/internal/database"
	"skillquest/internal/domain"
	"skillquest/internal/handler"
	"skillquest/internal/logger"
	"skillquest/internal/middleware"
	"skillquest/internal/repository"
	"skillquest/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
		)

		return err
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Connect to database
	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Connect to Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	cacheAdapter := adapter.NewRedisCacheAdapter(redisClient)
	leaderboardStore := adapter.NewRedisLeaderboardStore(redisClient)
	eventPublisher := adapter.NewRedisEventPublisher(redisClient)

	// The essay assistant is optional; without a configured model the
	// suggestion endpoint reports unavailable.
	var essayAssistant domain.EssayAssistant
	if cfg.Essay.Enabled {
		ollamaHTTPClient := &http.Client{Timeout: cfg.Essay.Timeout}
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.Essay.ServerURL),
			ollama.WithModel(cfg.Essay.Model),
			ollama.WithHTTPClient(ollamaHTTPClient))
		if err != nil {
			appLogger.Fatal("Failed to create LLM client", zap.Error(err))
		}
		essayAssistant = evaluator.NewLLMEssayAssistant(llm, cfg.Essay.Timeout)
		appLogger.Info("Essay assistant initialized",
			zap.String("server_url", cfg.Essay.ServerURL),
			zap.String("model", cfg.Essay.Model))
	}

	// Initialize repositories
	userRepository := repository.NewSQLXUserRepository(db)
	levelRepository := repository.NewSQLXLevelRepository(db)
	achievementRepository := repository.NewSQLXAchievementRepository(db)
	flashcardRepository := repository.NewSQLXFlashcardRepository(db)
	progressRepository := repository.NewSQLXFlashcardProgressRepository(db)
	testRepository := repository.NewSQLXTestRepository(db)
	attemptRepository := repository.NewSQLXAttemptRepository(db)
	txManager := repository.NewTransactionManagerAdapter(db)
	clock := domain.NewRealClock()

	// Initialize services
	progressionService := service.NewProgressionService(
		userRepository, levelRepository, achievementRepository,
		leaderboardStore, eventPublisher, cacheAdapter, txManager, clock)
	reviewService := service.NewReviewService(flashcardRepository, progressRepository, progressionService, clock)
	testService := service.NewTestService(testRepository, attemptRepository, progressionService, essayAssistant, txManager, clock)
	leaderboardService := service.NewLeaderboardService(leaderboardStore, userRepository)

	authService, err := service.NewAuthService(userRepository, cfg, clock)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	progressionHandler := handler.NewProgressionHandler(progressionService, leaderboardService)
	flashcardHandler := handler.NewFlashcardHandler(reviewService)
	testHandler := handler.NewTestHandler(testService)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  20 * time.Second,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,PUT,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept,Authorization", MaxAge: 300}))
	app.Use(recover.New())

	app.Get("/swagger/*", swagger.HandlerDefault)

	apiGroup := app.Group("/api")

	// Auth routes
	authGroup := apiGroup.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	protected := middleware.Protected(authService)
	teacherOnly := middleware.RequireRole(string(domain.RoleTeacher), string(domain.RoleAdmin))

	// Progression routes
	progressionGroup := apiGroup.Group("/progression", protected)
	progressionGroup.Get("/me", progressionHandler.GetMyProgression)
	progressionGroup.Get("/achievements", progressionHandler.ListAchievements)
	progressionGroup.Post("/award", teacherOnly, progressionHandler.AwardXP)

	// Leaderboard routes
	apiGroup.Get("/leaderboard", protected, leaderboardHandler.Top)
	apiGroup.Get("/leaderboard/me", protected, leaderboardHandler.MyRank)

	// Flashcard routes
	flashcardGroup := apiGroup.Group("/flashcards", protected)
	flashcardGroup.Get("/due", flashcardHandler.GetDueCards)
	flashcardGroup.Post("/review", flashcardHandler.SubmitReview)

	// Test routes
	testGroup := apiGroup.Group("/tests", protected)
	testGroup.Post("/", teacherOnly, testHandler.CreateTest)
	testGroup.Get("/:id", testHandler.GetTest)
	testGroup.Get("/:id/leaderboard", testHandler.TestLeaderboard)
	testGroup.Post("/:id/items", teacherOnly, testHandler.AddItem)
	testGroup.Post("/:id/students", teacherOnly, testHandler.AssignStudent)
	testGroup.Post("/:id/schedule", teacherOnly, testHandler.ScheduleTest())
	testGroup.Post("/:id/activate", teacherOnly, testHandler.ActivateTest())
	testGroup.Post("/:id/close", teacherOnly, testHandler.CloseTest())
	testGroup.Post("/:id/archive", teacherOnly, testHandler.ArchiveTest())
	testGroup.Post("/:id/attempts", testHandler.StartAttempt)

	// Attempt and grading routes
	attemptGroup := apiGroup.Group("/attempts", protected)
	attemptGroup.Post("/:id/answers", testHandler.SubmitAnswer)
	attemptGroup.Post("/:id/submit", testHandler.SubmitAttempt)

	submissionGroup := apiGroup.Group("/submissions", protected, teacherOnly)
	submissionGroup.Post("/:id/grade", testHandler.GradeSubmission)
	submissionGroup.Get("/:id/suggest", testHandler.SuggestGrade)

	// Attempt-expiry sweeper: abandons in-progress attempts that ran past
	// their deadline.
	sweeperDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-sweeperDone:
				return
			case <-ticker.C:
				sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				testIDs, err := testRepository.GetOpenTestIDs(sweepCtx)
				if err != nil {
					appLogger.Warn("Failed to list open tests for expiry sweep", zap.Error(err))
					cancel()
					continue
				}
				for _, testID := range testIDs {
					count, err := testService.ExpireOverdueAttempts(sweepCtx, testID)
					if err != nil {
						appLogger.Warn("Failed to expire overdue attempts",
							zap.String("test_id", testID), zap.Error(err))
						continue
					}
					if count > 0 {
						appLogger.Info("Expired overdue attempts",
							zap.String("test_id", testID), zap.Int("count", count))
					}
				}
				cancel()
			}
		}
	}()

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", os.Getenv("ENV")))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	close(sweeperDone)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
