package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/bakery_shop/internal/models"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
