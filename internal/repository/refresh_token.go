package repository

import (
	"context"
	"errors"
	"time"

	"github.com/skillforge/platform/internal/model"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
	"gorm.io/gorm"
)

// RefreshTokenRepository maintains the refresh-token ledger. Rows are
// revoked in place rather than deleted so that a rotated-away token
// presented again is recognizable as reuse.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateRefreshToken")

	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create refresh token record").
			String("user_id", token.UserID).
			Err(err).
			Log()
		return err
	}

	return nil
}

// FindByHash looks up a ledger row by token hash, including revoked rows.
// Returns (nil, nil) when the hash is unknown.
func (r *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindRefreshTokenByHash")

	var token model.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.ErrorWithContext(ctx, "Failed to find refresh token by hash").
			Err(err).
			Log()
		return nil, err
	}

	return &token, nil
}

// Revoke marks a single token revoked, guarded by is_revoked = false so that
// exactly one of two concurrent rotations wins. The bool reports whether this
// call did the revocation.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string, reason string) (bool, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "RevokeRefreshToken")

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("id = ? AND is_revoked = ?", id, false).
		Updates(map[string]interface{}{
			"is_revoked":        true,
			"revoked_at":        now,
			"revocation_reason": reason,
		})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke refresh token").
			String("token_id", id).
			Err(result.Error).
			Log()
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// RevokeAllForUser revokes every active token of the user in one statement.
// Used on logout-all, reuse detection, and password changes.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string, reason string) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "RevokeAllForUser")

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Updates(map[string]interface{}{
			"is_revoked":        true,
			"revoked_at":        now,
			"revocation_reason": reason,
		})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke user refresh tokens").
			String("user_id", userID).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	if result.RowsAffected > 0 {
		logger.InfoWithContext(ctx, "Revoked all refresh tokens for user").
			String("user_id", userID).
			String("reason", reason).
			Int64("revoked_count", result.RowsAffected).
			Log()
	}

	return result.RowsAffected, nil
}

// ListActiveForUser returns the user's live sessions, newest first.
func (r *RefreshTokenRepository) ListActiveForUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ListActiveForUser")

	var tokens []model.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_revoked = ? AND expires_at > ?", userID, false, time.Now().UTC()).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list active sessions").
			String("user_id", userID).
			Err(err).
			Log()
		return nil, err
	}

	return tokens, nil
}

// GetByID fetches a single ledger row, (nil, nil) when absent.
func (r *RefreshTokenRepository) GetByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetRefreshTokenByID")

	var token model.RefreshToken
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &token, nil
}

// TouchLastUsed stamps the token's last activity. Best effort; rotation does
// not depend on it.
func (r *RefreshTokenRepository) TouchLastUsed(ctx context.Context, id string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "TouchLastUsed")

	err := r.db.WithContext(ctx).Model(&model.RefreshToken{}).Where("id = ?", id).
		Update("last_used_at", time.Now().UTC()).Error
	if err != nil {
		logger.WarnWithContext(ctx, "Failed to stamp refresh token usage").
			String("token_id", id).
			Err(err).
			Log()
	}
	return err
}

// DeleteExpiredBefore prunes ledger rows whose expiry is older than the
// cutoff. Expired rows carry no reuse signal anymore since the token itself
// no longer verifies.
func (r *RefreshTokenRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "DeleteExpiredBefore")

	start := time.Now()
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.RefreshToken{})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to prune expired refresh tokens").
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	logger.InfoWithContext(ctx, "Pruned expired refresh tokens").
		Int64("deleted_count", result.RowsAffected).
		Duration(time.Since(start)).
		Log()

	return result.RowsAffected, nil
}
