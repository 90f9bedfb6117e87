package service

import (
	"context"
	"errors"
	"time"

	"github.com/skillforge/platform/internal/constants"
	"github.com/skillforge/platform/internal/dto"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	"github.com/skillforge/platform/internal/notify"
	"github.com/skillforge/platform/internal/repository"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

const dispatchTimeout = 10 * time.Second

// AuthService orchestrates registration, login, token lifecycle and the
// single-use token flows. It owns no persistence of its own; everything
// goes through the stores and the token services.
type AuthService struct {
	users      UserStore
	tokens     *TokenService
	singleUse  *SingleUseTokenService
	dispatcher notify.Dispatcher

	// dummyHash is compared against when login hits an unknown email, so
	// both branches cost one bcrypt comparison and response timing does
	// not reveal whether the address is registered.
	dummyHash []byte

	bcryptCost int
}

func NewAuthService(users UserStore, tokens *TokenService, singleUse *SingleUseTokenService, dispatcher notify.Dispatcher) *AuthService {
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalization-placeholder"), bcrypt.DefaultCost)
	if err != nil {
		// GenerateFromPassword only fails on an invalid cost.
		panic(err)
	}

	return &AuthService{
		users:      users,
		tokens:     tokens,
		singleUse:  singleUse,
		dispatcher: dispatcher,
		dummyHash:  dummy,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register creates an account with a hashed password, opens the first
// session, and kicks off email verification. The pre-insert existence check
// gives a clean error for the common case; the unique constraint catches
// concurrent registrations.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest, meta SessionMeta) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	exists, err := s.users.ExistsByEmailOrPhone(ctx, req.Email, req.Phone)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if exists {
		return nil, apperrors.ErrDuplicateCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Email:        req.Email,
		Phone:        req.Phone,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
		Status:       model.StatusActive,
		TokenVersion: 1,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Account registered").
		String("user_id", user.ID).
		String("email", user.Email).
		Log()

	// The fresh account is immediately authenticated.
	pair, err := s.tokens.IssuePair(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	token, err := s.singleUse.Issue(ctx, user.ID, repository.PurposeEmailVerification)
	if err != nil {
		// The account exists; verification can be re-sent later.
		logger.ErrorWithContext(ctx, "Failed to issue verification token").
			String("user_id", user.ID).
			Err(err).
			Log()
	} else {
		s.dispatchAsync(ctx, notify.Message{
			Kind:        notify.KindEmailVerification,
			Recipient:   user.Email,
			DisplayName: user.DisplayName,
			Token:       token,
		})
	}

	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         toUserResponse(user),
	}, nil
}

// Login verifies credentials and opens a new session. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest, meta SessionMeta) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.WarnWithContext(ctx, "Login failed, wrong password").
			String("user_id", user.ID).
			Log()
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive() {
		return nil, apperrors.ErrAccountNotActive
	}

	pair, err := s.tokens.IssuePair(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		// Best effort; the login already succeeded.
		logger.WarnWithContext(ctx, "Failed to stamp last login").
			String("user_id", user.ID).
			Err(err).
			Log()
	}

	logger.InfoWithContext(ctx, "Login succeeded").
		String("user_id", user.ID).
		Log()

	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         toUserResponse(user),
	}, nil
}

// Refresh rotates a refresh token into a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta SessionMeta) (*dto.TokenPairResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Refresh")

	_, pair, err := s.tokens.Rotate(ctx, refreshToken, meta)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout ends the session behind the presented refresh token. Idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "Logout")
	return s.tokens.RevokeByToken(ctx, refreshToken, constants.RevocationLogout)
}

// LogoutAll ends every session of the user and invalidates outstanding
// access tokens.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "LogoutAll")
	return s.tokens.RevokeAllForUser(ctx, userID, constants.RevocationLogout)
}

// ForgotPassword issues a reset token when the email is registered. The
// caller always gets the same acknowledgement either way; existence of an
// account is never revealed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ForgotPassword")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil || !user.IsActive() {
		logger.InfoWithContext(ctx, "Password reset requested for unknown or inactive email").Log()
		return nil
	}

	token, err := s.singleUse.Issue(ctx, user.ID, repository.PurposePasswordReset)
	if err != nil {
		return err
	}

	s.dispatchAsync(ctx, notify.Message{
		Kind:        notify.KindPasswordReset,
		Recipient:   user.Email,
		DisplayName: user.DisplayName,
		Token:       token,
	})

	return nil
}

// ResetPassword consumes a reset token, stores the new password and kills
// every session, so a thief holding old tokens is locked out.
func (s *AuthService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ResetPassword")

	user, err := s.singleUse.Consume(ctx, repository.PurposePasswordReset, req.Token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, user.ID, constants.RevocationPasswordReset); err != nil {
		return err
	}

	s.dispatchAsync(ctx, notify.Message{
		Kind:        notify.KindPasswordChanged,
		Recipient:   user.Email,
		DisplayName: user.DisplayName,
	})

	logger.InfoWithContext(ctx, "Password reset completed").
		String("user_id", user.ID).
		Log()

	return nil
}

// ChangePassword is the authenticated variant: it requires the current
// password and keeps no session alive afterwards. The client is expected to
// log in again with the new password.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req dto.ChangePasswordRequest) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ChangePassword")

	if req.NewPassword == req.CurrentPassword {
		return apperrors.ValidationError("new password must differ from current password")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return apperrors.ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	if err := s.tokens.RevokeAllForUser(ctx, user.ID, constants.RevocationPasswordChange); err != nil {
		return err
	}

	s.dispatchAsync(ctx, notify.Message{
		Kind:        notify.KindPasswordChanged,
		Recipient:   user.Email,
		DisplayName: user.DisplayName,
	})

	return nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "VerifyEmail")

	user, err := s.singleUse.Consume(ctx, repository.PurposeEmailVerification, token)
	if err != nil {
		return err
	}

	if user.EmailVerified {
		return apperrors.ErrAlreadyVerified
	}

	if err := s.users.SetEmailVerified(ctx, user.ID); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Email verified").
		String("user_id", user.ID).
		Log()

	return nil
}

// ResendVerification issues a fresh verification token, invalidating the
// previous link.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "ResendVerification")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return apperrors.ErrUserNotFound
	}
	if user.EmailVerified {
		return apperrors.ErrAlreadyVerified
	}

	token, err := s.singleUse.Issue(ctx, user.ID, repository.PurposeEmailVerification)
	if err != nil {
		return err
	}

	s.dispatchAsync(ctx, notify.Message{
		Kind:        notify.KindEmailVerification,
		Recipient:   user.Email,
		DisplayName: user.DisplayName,
		Token:       token,
	})

	return nil
}

// ListSessions returns the user's live sessions for display.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]dto.SessionResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListSessions")

	records, err := s.tokens.tokens.ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	sessions := make([]dto.SessionResponse, 0, len(records))
	for _, rec := range records {
		sessions = append(sessions, dto.SessionResponse{
			ID:         rec.ID,
			DeviceName: rec.DeviceName,
			UserAgent:  rec.UserAgent,
			IPAddress:  rec.IPAddress,
			CreatedAt:  rec.CreatedAt,
			LastUsedAt: rec.LastUsedAt,
			ExpiresAt:  rec.ExpiresAt,
		})
	}

	return sessions, nil
}

// TerminateSession revokes one session by ID. Users can only terminate
// their own sessions.
func (s *AuthService) TerminateSession(ctx context.Context, userID, sessionID string) error {
	ctx = ctxutil.WithOperation(ctx, "service", "TerminateSession")

	record, err := s.tokens.tokens.GetByID(ctx, sessionID)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if record == nil || record.UserID != userID {
		return apperrors.ErrUserNotFound
	}

	if _, err := s.tokens.tokens.Revoke(ctx, sessionID, constants.RevocationTerminated); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return nil
}

// dispatchAsync publishes a notification without blocking the request. The
// goroutine gets its own timeout because the request context dies when the
// handler returns.
func (s *AuthService) dispatchAsync(ctx context.Context, msg notify.Message) {
	requestID := ctxutil.GetRequestID(ctx)

	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if requestID != "" {
			dctx = context.WithValue(dctx, ctxutil.RequestIDKey, requestID)
		}

		if err := s.dispatcher.Dispatch(dctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorWithContext(dctx, "Notification dispatch failed").
				String("kind", string(msg.Kind)).
				Err(err).
				Log()
		}
	}()
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Phone:         user.Phone,
		DisplayName:   user.DisplayName,
		Role:          string(user.Role),
		Status:        string(user.Status),
		EmailVerified: user.EmailVerified,
		LastLogin:     user.LastLogin,
		CreatedAt:     user.CreatedAt,
	}
}
