package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/skillforge/platform/internal/constants"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
)

// JWTConfig holds signing material and lifetimes for both token kinds.
// Access and refresh tokens are signed with separate secrets so one cannot
// be presented in place of the other.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// AccessClaims are the claims embedded in access tokens. The "ver" claim is
// compared against the account's current token version on every verification.
type AccessClaims struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"ver"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only registered claims; the jti doubles as the ledger
// row ID so a parsed token maps straight to its session record.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// SessionMeta is client metadata captured when a session is created.
type SessionMeta struct {
	DeviceName string
	UserAgent  string
	IPAddress  string
}

// TokenPair is an issued access/refresh pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime in seconds
}

// TokenService issues, verifies and rotates tokens. Rotation implements
// one-time refresh-token use with reuse detection: presenting a revoked
// token revokes the whole session family.
type TokenService struct {
	config JWTConfig
	users  UserStore
	tokens RefreshTokenStore
}

func NewTokenService(config JWTConfig, users UserStore, tokens RefreshTokenStore) *TokenService {
	return &TokenService{
		config: config,
		users:  users,
		tokens: tokens,
	}
}

// HashToken returns the hex SHA-256 digest under which refresh tokens are
// stored. The raw token never touches the database.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssuePair signs a fresh access/refresh pair for the user and records the
// refresh token in the ledger.
func (s *TokenService) IssuePair(ctx context.Context, user *model.User, meta SessionMeta) (*TokenPair, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "IssuePair")

	now := time.Now().UTC()

	accessToken, err := s.signAccessToken(user, now)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to sign access token").
			String("user_id", user.ID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	sessionID := uuid.NewString()
	refreshExpiry := now.Add(s.config.RefreshTTL)

	refreshToken, err := s.signRefreshToken(user.ID, sessionID, now, refreshExpiry)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to sign refresh token").
			String("user_id", user.ID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	record := &model.RefreshToken{
		ID:         sessionID,
		TokenHash:  HashToken(refreshToken),
		UserID:     user.ID,
		ExpiresAt:  refreshExpiry,
		DeviceName: meta.DeviceName,
		UserAgent:  meta.UserAgent,
		IPAddress:  meta.IPAddress,
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.config.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) signAccessToken(user *model.User, now time.Time) (string, error) {
	claims := AccessClaims{
		Email:        user.Email,
		Role:         string(user.Role),
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessSecret))
}

func (s *TokenService) signRefreshToken(userID, sessionID string, now, expiry time.Time) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.RefreshSecret))
}

// VerifyAccessToken validates the signature and claims, then checks the
// live account state: the account must still be active and the token's
// version must match the account's current one. A stale version means the
// user revoked outstanding access tokens after this one was issued.
func (s *TokenService) VerifyAccessToken(ctx context.Context, tokenString string) (*model.User, *AccessClaims, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "VerifyAccessToken")

	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.AccessSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, apperrors.ErrTokenExpired
		}
		return nil, nil, apperrors.WrapError(apperrors.ErrTokenInvalid, err)
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, nil, apperrors.ErrTokenInvalid
	}
	if !user.IsActive() {
		return nil, nil, apperrors.ErrAccountNotActive
	}
	if claims.TokenVersion != user.TokenVersion {
		logger.DebugWithContext(ctx, "Access token version stale").
			String("user_id", user.ID).
			Int("token_version", claims.TokenVersion).
			Int("current_version", user.TokenVersion).
			Log()
		return nil, nil, apperrors.ErrTokenInvalid
	}

	return user, claims, nil
}

// parseRefreshToken validates signature and expiry only; ledger checks are
// the caller's job.
func (s *TokenService) parseRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.config.RefreshSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.WrapError(apperrors.ErrTokenInvalid, err)
	}
	return claims, nil
}

// Rotate exchanges a refresh token for a new pair. The presented token is
// revoked; presenting an already-revoked or unknown-but-validly-signed token
// is treated as theft evidence and revokes every session of the user.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string, meta SessionMeta) (*model.User, *TokenPair, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RotateRefreshToken")

	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.tokens.FindByHash(ctx, HashToken(refreshToken))
	if err != nil {
		return nil, nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	// A validly signed token missing from the ledger means the row was
	// pruned or the secret leaked; either way the token must not work, and
	// a revoked row means this token was already rotated away. Both revoke
	// the family.
	if record == nil || record.IsRevoked {
		s.revokeFamily(ctx, claims.Subject)
		return nil, nil, apperrors.ErrTokenInvalid
	}

	if record.IsExpired(time.Now().UTC()) {
		return nil, nil, apperrors.ErrTokenExpired
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, nil, apperrors.ErrTokenInvalid
	}
	if !user.IsActive() {
		_, _ = s.tokens.Revoke(ctx, record.ID, constants.RevocationTerminated)
		return nil, nil, apperrors.ErrAccountNotActive
	}

	// Exactly one concurrent rotation wins the guarded update. The loser
	// is holding a token that was just rotated away, which is the same
	// signal as reuse.
	won, err := s.tokens.Revoke(ctx, record.ID, constants.RevocationSuperseded)
	if err != nil {
		return nil, nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if !won {
		logger.WarnWithContext(ctx, "Concurrent refresh rotation detected").
			String("user_id", user.ID).
			String("token_id", record.ID).
			Log()
		s.revokeFamily(ctx, user.ID)
		return nil, nil, apperrors.ErrTokenInvalid
	}

	_ = s.tokens.TouchLastUsed(ctx, record.ID)

	// Carry forward device identity; UA and IP come fresh from the request.
	if meta.DeviceName == "" {
		meta.DeviceName = record.DeviceName
	}
	if meta.UserAgent == "" {
		meta.UserAgent = record.UserAgent
	}
	if meta.IPAddress == "" {
		meta.IPAddress = record.IPAddress
	}

	pair, err := s.IssuePair(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// RevokeByToken revokes the single session behind a refresh token. Unknown
// or already-revoked tokens succeed silently so logout is idempotent.
func (s *TokenService) RevokeByToken(ctx context.Context, refreshToken string, reason string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "RevokeByToken")

	record, err := s.tokens.FindByHash(ctx, HashToken(refreshToken))
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if record == nil {
		return nil
	}

	if _, err := s.tokens.Revoke(ctx, record.ID, reason); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// RevokeAllForUser kills every session and invalidates outstanding access
// tokens via a version bump.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string, reason string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "RevokeAllForUser")

	if _, err := s.tokens.RevokeAllForUser(ctx, userID, reason); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// revokeFamily is the reuse-detection response; failures are logged, not
// returned, since the caller is already rejecting the request.
func (s *TokenService) revokeFamily(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	logger.WarnWithContext(ctx, "Refresh token reuse detected, revoking all sessions").
		String("user_id", userID).
		Log()

	if err := s.RevokeAllForUser(ctx, userID, constants.RevocationReuseDetected); err != nil {
		logger.ErrorWithContext(ctx, "Failed to revoke session family").
			String("user_id", userID).
			Err(err).
			Log()
	}
}

// CleanupExpired prunes ledger rows that expired before now minus the grace
// period. Intended to run on a timer from main.
func (s *TokenService) CleanupExpired(ctx context.Context, grace time.Duration) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CleanupExpired")
	return s.tokens.DeleteExpiredBefore(ctx, time.Now().UTC().Add(-grace))
}
