package database

import (
	"gorm.io/gorm"
)

// EnsureIndexes creates indexes that the gorm tags cannot express, mainly
// partial and composite indexes used by hot auth queries.
func EnsureIndexes(db *gorm.DB) error {
	statements := []string{
		// Case-insensitive email lookups hit this instead of a seq scan.
		`CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))`,

		// Active-session listing and family revocation filter on both columns.
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_active ON refresh_tokens (user_id, is_revoked)`,

		// Cleanup scans only expired rows.
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_expires_at ON refresh_tokens (expires_at)`,
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
