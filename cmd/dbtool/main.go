package main

import (
	"context"
	"os"
	"route-scheduling-service/internal/adapters/repositories"
	"route-scheduling-service/internal/config"
	"route-scheduling-service/internal/platform/db"
	"route-scheduling-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	logger := obs.NewLogger(config.Get("LOG_LEVEL", "info"), os.Stdout)
	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx)

	conn, err := db.Open(ctx, databaseURL, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect")
	}
	defer conn.Close()

	logger.Info().Msg("initializing database schema")
	if err := repositories.InitSchema(ctx, conn); err != nil {
		logger.Fatal().Err(err).Msg("schema initialization failed")
	}

	seedPath := config.Get("SEED_PATH", "data/seeds/orders.json")
	if len(os.Args) > 1 {
		seedPath = os.Args[1]
	}

	logger.Info().Str("path", seedPath).Msg("seeding orders")
	if err := repositories.SeedOrdersFromJSON(ctx, conn, seedPath); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
	logger.Info().Msg("seeding complete")
}
