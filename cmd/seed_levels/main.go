package main

import (
	"context"
	"fmt"
	"os"

	"skillquest/database"
	"skillquest/internal/config"
	"skillquest/internal/domain"
	"skillquest/internal/logger"
	"skillquest/internal/repository"
	"skillquest/internal/util"

	"go.uber.org/zap"
)

// maxSeededLevel bounds the ladder. ResolveLevel caps anyone past the last
// threshold at this level.
const maxSeededLevel = 100

func levelName(number int) string {
	switch {
	case number == 1:
		return "Novice"
	case number < 10:
		return fmt.Sprintf("Apprentice %d", number)
	case number < 25:
		return fmt.Sprintf("Adept %d", number)
	case number < 50:
		return fmt.Sprintf("Expert %d", number)
	default:
		return fmt.Sprintf("Master %d", number)
	}
}

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	// The seed tool runs from operator machines with a full Oracle client
	// install, so it connects through godror and plain env vars.
	db, err := database.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to Oracle database", zap.Error(err))
	}
	defer db.Close()

	levelRepo := repository.NewSQLXLevelRepository(db)

	log.Info("Seeding level ladder", zap.Int("levels", maxSeededLevel))
	for n := 1; n <= maxSeededLevel; n++ {
		level := &domain.Level{
			ID:          util.NewULID(),
			Number:      n,
			Name:        levelName(n),
			ExpRequired: domain.CumulativeXP(n),
		}
		if err := levelRepo.SaveLevel(ctx, level); err != nil {
			log.Fatal("Failed to seed level", zap.Int("number", n), zap.Error(err))
		}
	}
	log.Info("Level ladder seeded")
}
