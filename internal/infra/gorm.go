package infra

import (
	"fmt"
	"log/slog"

	sloggorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewGorm opens the ORM connection used by the catalog. Queries are logged
// through the application's slog handler.
func NewGorm(dsn string, handler slog.Handler) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: sloggorm.New(sloggorm.WithHandler(handler)),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

// CloseGorm releases the pool behind a gorm handle.
func CloseGorm(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
