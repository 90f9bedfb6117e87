package database

import (
	"github.com/skillforge/platform/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs schema migration for all persisted entities.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
	)
}
