package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
	"gorm.io/gorm"
)

// TokenPurpose selects which single-use token slot on the user row an
// operation targets.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// UserRepository persists user accounts. Lookup methods return (nil, nil)
// when no row matches; callers decide whether absence is an error.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A unique violation on email or phone is
// translated to ErrDuplicateCredential, which also covers registration races
// that slip past the pre-insert existence check.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "CreateUser")

	user.Email = strings.ToLower(user.Email)

	start := time.Now()
	err := r.db.WithContext(ctx).Create(user).Error
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.WarnWithContext(ctx, "Duplicate credential on user create").
				String("email", user.Email).
				Duration(duration).
				Log()
			return apperrors.WrapError(apperrors.ErrDuplicateCredential, err)
		}
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "User created").
		String("user_id", user.ID).
		String("email", user.Email).
		Duration(duration).
		Log()

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetUserByID")

	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.ErrorWithContext(ctx, "Failed to get user by ID").
			String("user_id", id).
			Err(err).
			Log()
		return nil, err
	}

	return &user, nil
}

// GetByEmail matches case-insensitively; addresses are stored lower-cased.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "GetUserByEmail")

	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.ErrorWithContext(ctx, "Failed to get user by email").
			Err(err).
			Log()
		return nil, err
	}

	return &user, nil
}

// ExistsByEmailOrPhone reports whether either credential is already taken.
// Phone is only checked when non-empty since unverified accounts may omit it.
func (r *UserRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ExistsByEmailOrPhone")

	query := r.db.WithContext(ctx).Model(&model.User{}).Where("email = ?", strings.ToLower(email))
	if phone != "" {
		query = r.db.WithContext(ctx).Model(&model.User{}).
			Where("email = ? OR phone = ?", strings.ToLower(email), phone)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to check credential existence").
			Err(err).
			Log()
		return false, err
	}

	return count > 0, nil
}

// UpdateProfile updates the mutable profile fields only.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, displayName, phone string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateProfile")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"display_name": displayName,
		"phone":        phone,
	})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperrors.WrapError(apperrors.ErrDuplicateCredential, result.Error)
		}
		logger.ErrorWithContext(ctx, "Failed to update profile").
			String("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdatePassword")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update password").
			String("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	logger.InfoWithContext(ctx, "Password updated").
		String("user_id", id).
		Log()

	return nil
}

// BumpTokenVersion invalidates all outstanding access tokens for the user.
// The increment runs in SQL so concurrent bumps never lose an update.
func (r *UserRepository) BumpTokenVersion(ctx context.Context, id string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "BumpTokenVersion")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to bump token version").
			String("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	logger.InfoWithContext(ctx, "Token version bumped").
		String("user_id", id).
		Log()

	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "UpdateLastLogin")

	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("last_login", time.Now().UTC()).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to update last login").
			String("user_id", id).
			Err(err).
			Log()
	}
	return err
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id string) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetEmailVerified")

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email_verified":           true,
		"email_verification_token": nil,
		"email_token_expiry":       nil,
	})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark email verified").
			String("user_id", id).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

// SetSingleUseToken stores a fresh token and expiry in the slot for the given
// purpose, replacing any previous token for that purpose.
func (r *UserRepository) SetSingleUseToken(ctx context.Context, id string, purpose TokenPurpose, token string, expiry time.Time) error {
	ctx = ctxutil.WithOperation(ctx, "repository", "SetSingleUseToken")

	tokenCol, expiryCol := purposeColumns(purpose)

	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		tokenCol:  token,
		expiryCol: expiry,
	})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to store single-use token").
			String("user_id", id).
			String("purpose", string(purpose)).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}

	return nil
}

// FindBySingleUseToken resolves the user holding the given token for the
// purpose. Expiry is checked by the caller, which owns the clock.
func (r *UserRepository) FindBySingleUseToken(ctx context.Context, purpose TokenPurpose, token string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "FindBySingleUseToken")

	tokenCol, _ := purposeColumns(purpose)

	var user model.User
	err := r.db.WithContext(ctx).Where(tokenCol+" = ?", token).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.ErrorWithContext(ctx, "Failed to find user by single-use token").
			String("purpose", string(purpose)).
			Err(err).
			Log()
		return nil, err
	}

	return &user, nil
}

// ClearSingleUseToken clears the slot only if it still holds the given token.
// Returns false when another request consumed it first, which makes replays
// of the same token fail cleanly.
func (r *UserRepository) ClearSingleUseToken(ctx context.Context, id string, purpose TokenPurpose, token string) (bool, error) {
	ctx = ctxutil.WithOperation(ctx, "repository", "ClearSingleUseToken")

	tokenCol, expiryCol := purposeColumns(purpose)

	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND "+tokenCol+" = ?", id, token).
		Updates(map[string]interface{}{
			tokenCol:  nil,
			expiryCol: nil,
		})
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to clear single-use token").
			String("user_id", id).
			String("purpose", string(purpose)).
			Err(result.Error).
			Log()
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func purposeColumns(purpose TokenPurpose) (tokenCol, expiryCol string) {
	if purpose == PurposePasswordReset {
		return "password_reset_token", "password_reset_expiry"
	}
	return "email_verification_token", "email_token_expiry"
}
