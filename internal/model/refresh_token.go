package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is one ledger row per issued refresh token. The raw token is
// never stored; TokenHash is a SHA-256 digest of the signed token string.
// Rows are revoked, not deleted, so a superseded token presented again can be
// recognized as reuse.
type RefreshToken struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey"`
	TokenHash string    `gorm:"column:token_hash;uniqueIndex;not null"`
	UserID    string    `gorm:"column:user_id;type:uuid;index;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`

	IsRevoked        bool       `gorm:"column:is_revoked;default:false;not null"`
	RevokedAt        *time.Time `gorm:"column:revoked_at;default:null"`
	RevocationReason string     `gorm:"column:revocation_reason;default:null"`

	// Session metadata captured at issuance, surfaced by session listing.
	DeviceName string `gorm:"column:device_name"`
	UserAgent  string `gorm:"column:user_agent"`
	IPAddress  string `gorm:"column:ip_address"`

	LastUsedAt *time.Time `gorm:"column:last_used_at;default:null"`
	CreatedAt  time.Time
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the token's TTL has elapsed.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
