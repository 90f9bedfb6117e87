package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role determines the capability set embedded in issued access tokens.
type Role string

const (
	RoleUser       Role = "user"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Status is the account lifecycle state. Accounts are never hard-deleted;
// deletion is a transition to StatusDeleted.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusDeleted   Status = "deleted"
)

type User struct {
	ID           string `gorm:"column:id;type:uuid;primaryKey"`
	Email        string `gorm:"column:email;uniqueIndex;not null"`
	Phone        string `gorm:"column:phone;index:idx_users_phone,unique,where:phone <> ''"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	DisplayName  string `gorm:"column:display_name;not null"`
	Role         Role   `gorm:"column:role;default:user;not null"`
	Status       Status `gorm:"column:status;default:active;not null"`

	EmailVerified bool `gorm:"column:email_verified;default:false;not null"`
	PhoneVerified bool `gorm:"column:phone_verified;default:false;not null"`

	// TokenVersion is embedded in every access token; bumping it
	// invalidates all tokens issued before the bump.
	TokenVersion int `gorm:"column:token_version;default:1;not null"`

	EmailVerificationToken string     `gorm:"column:email_verification_token;default:null;index:idx_users_email_token,where:email_verification_token IS NOT NULL"`
	EmailTokenExpiry       *time.Time `gorm:"column:email_token_expiry;default:null"`
	PasswordResetToken     string     `gorm:"column:password_reset_token;default:null;index:idx_users_reset_token,where:password_reset_token IS NOT NULL"`
	PasswordResetExpiry    *time.Time `gorm:"column:password_reset_expiry;default:null"`

	LastLogin *time.Time `gorm:"column:last_login;default:null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsActive reports whether the account may authenticate or refresh.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
