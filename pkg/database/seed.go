package database

import (
	"errors"
	"os"

	"github.com/skillforge/platform/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seed creates the initial admin account if it does not exist yet.
func Seed(db *gorm.DB) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil // seeding disabled
	}

	var existing model.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil // admin already present
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:         email,
		DisplayName:   "Administrator",
		PasswordHash:  string(hash),
		Role:          model.RoleAdmin,
		Status:        model.StatusActive,
		EmailVerified: true,
	}

	return db.Create(admin).Error
}
