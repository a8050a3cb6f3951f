package store

import (
	"fmt"

	"github.com/zulandar/wapanel/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every table the local store owns.
func AllModels() []interface{} {
	return []interface{}{
		&models.Preference{},
		&models.Activity{},
	}
}

// AutoMigrate creates or updates the local tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("store: auto-migrate: %w", err)
	}
	return nil
}
