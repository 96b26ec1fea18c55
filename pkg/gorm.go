package pkg

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/proctor-agent/internal/config"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

// InitDatabase opens the audit database and migrates the proctoring tables.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.IsProduction() {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.ProctoringEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate proctoring tables: %w", err)
	}
	return db, nil
}
