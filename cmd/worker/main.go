package main

import (
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/hugh/mevamscale/internal/database"
	"github.com/hugh/mevamscale/internal/tasks"
	"github.com/hugh/mevamscale/pkg/config"
	"github.com/hugh/mevamscale/pkg/queue"
	"github.com/hugh/mevamscale/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting MevamScale worker", "concurrency", cfg.Worker.Concurrency)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)

	handler := tasks.NewHandler(db, logger)

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	logger.Info("worker started, waiting for tasks...")

	// Run blocks until SIGINT or SIGTERM, then drains in-flight tasks
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
