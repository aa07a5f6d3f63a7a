package database

import (
	"fmt"
	"log/slog"

	"cms/internal/config"
	"cms/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured store and applies pool settings.
// Driver errors are translated so unique violations surface as gorm.ErrDuplicatedKey.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewSlogLogger(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	slog.Info("database connection established", "driver", cfg.Driver)
	return db, nil
}

// Migrate creates or updates the schema, including the explicit join tables.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Article{}, "Tags", &models.ArticleTag{}); err != nil {
		return fmt.Errorf("failed to set up article_tags: %w", err)
	}
	if err := db.SetupJoinTable(&models.Article{}, "Categories", &models.ArticleCategory{}); err != nil {
		return fmt.Errorf("failed to set up article_categories: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Category{},
		&models.Article{},
		&models.ArticleTag{},
		&models.ArticleCategory{},
	); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}
