package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	"github.com/skillforge/platform/internal/repository"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
)

// SingleUseConfig holds the lifetimes for the two single-use token kinds.
type SingleUseConfig struct {
	VerificationTTL time.Duration // email verification links
	ResetTTL        time.Duration // password reset links
}

// SingleUseTokenService issues and consumes the opaque tokens embedded in
// email verification and password reset links. A token is valid for exactly
// one consumption; issuing a new one replaces any outstanding token for the
// same purpose.
type SingleUseTokenService struct {
	config SingleUseConfig
	users  UserStore
}

func NewSingleUseTokenService(config SingleUseConfig, users UserStore) *SingleUseTokenService {
	return &SingleUseTokenService{
		config: config,
		users:  users,
	}
}

// Issue generates a fresh token for the purpose and stores it on the user
// row, replacing any previous one.
func (s *SingleUseTokenService) Issue(ctx context.Context, userID string, purpose repository.TokenPurpose) (string, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "IssueSingleUseToken")

	token, err := generateOpaqueToken()
	if err != nil {
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}

	ttl := s.config.VerificationTTL
	if purpose == repository.PurposePasswordReset {
		ttl = s.config.ResetTTL
	}

	expiry := time.Now().UTC().Add(ttl)
	if err := s.users.SetSingleUseToken(ctx, userID, purpose, token, expiry); err != nil {
		return "", err
	}

	logger.InfoWithContext(ctx, "Single-use token issued").
		String("user_id", userID).
		String("purpose", string(purpose)).
		Log()

	return token, nil
}

// Consume resolves and atomically invalidates the token. Expired tokens
// return ErrTokenExpired; unknown or already-consumed tokens return
// ErrTokenInvalid. On success the owning user is returned.
func (s *SingleUseTokenService) Consume(ctx context.Context, purpose repository.TokenPurpose, token string) (*model.User, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ConsumeSingleUseToken")

	if token == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	user, err := s.users.FindBySingleUseToken(ctx, purpose, token)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, apperrors.ErrTokenInvalid
	}

	expiry := user.EmailTokenExpiry
	if purpose == repository.PurposePasswordReset {
		expiry = user.PasswordResetExpiry
	}
	if expiry == nil || time.Now().UTC().After(*expiry) {
		return nil, apperrors.ErrTokenExpired
	}

	// The guarded clear is the single-use barrier: between two concurrent
	// consumers, only one clears the slot.
	consumed, err := s.users.ClearSingleUseToken(ctx, user.ID, purpose, token)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if !consumed {
		return nil, apperrors.ErrTokenInvalid
	}

	logger.InfoWithContext(ctx, "Single-use token consumed").
		String("user_id", user.ID).
		String("purpose", string(purpose)).
		Log()

	return user, nil
}

// generateOpaqueToken returns 32 random bytes hex-encoded.
func generateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
