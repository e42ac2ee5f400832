package database

import (
	"gorm.io/gorm"

	"github.com/snapdish/backend/internal/models"
)

// Migrate creates or updates the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.FoodItem{},
		&models.Recipe{},
		&models.Ingredient{},
		&models.Step{},
		&models.RateLimitStat{},
	)
}
