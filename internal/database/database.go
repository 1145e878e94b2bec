package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/hugh/mevamscale/internal/database/models"
	"github.com/hugh/mevamscale/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Postgres may still be starting when the container comes up
	retrier := retry.NewRetrier(cfg.ConnectAttempts, 500*time.Millisecond, 5*time.Second)

	var db *gorm.DB
	attempt := 0
	err := retrier.Run(func() error {
		attempt++
		conn, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger:         gormLogger,
			TranslateError: true,
		})
		if err != nil {
			log.Warn("database not reachable", "attempt", attempt, "error", err)
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

// AutoMigrate creates the seven relations and their cascade constraints.
// Parents are listed before children.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Membership{},
		&models.Skill{},
		&models.Team{},
		&models.TeamMembership{},
		&models.RosterBatch{},
		&models.ScheduleEntry{},
	)
}
