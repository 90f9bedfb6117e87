package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skillforge/platform/internal/dto"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	"github.com/skillforge/platform/internal/notify"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserStore, *fakeTokenStore, *fakeDispatcher) {
	t.Helper()

	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	dispatcher := newFakeDispatcher()

	tokenService := NewTokenService(testJWTConfig(), users, tokens)
	singleUse := NewSingleUseTokenService(SingleUseConfig{
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	}, users)

	return NewAuthService(users, tokenService, singleUse, dispatcher), users, tokens, dispatcher
}

func registerTestUser(t *testing.T, svc *AuthService) *dto.AuthResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:       "Carol@Example.com",
		Password:    "correct-horse-battery",
		DisplayName: "Carol",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

func TestRegister_CreatesAccount(t *testing.T) {
	svc, users, _, dispatcher := newTestAuthService(t)

	resp := registerTestUser(t, svc)

	if resp.User.Email != "carol@example.com" {
		t.Errorf("email = %q, want lower-cased carol@example.com", resp.User.Email)
	}
	if resp.User.Role != string(model.RoleUser) {
		t.Errorf("role = %q, want user", resp.User.Role)
	}
	if resp.User.EmailVerified {
		t.Error("fresh account must not be email-verified")
	}

	stored, _ := users.GetByID(context.Background(), resp.User.ID)
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.PasswordHash == "correct-horse-battery" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct-horse-battery")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if stored.TokenVersion != 1 {
		t.Errorf("token version = %d, want 1", stored.TokenVersion)
	}

	msg, ok := dispatcher.waitForMessage(2 * time.Second)
	if !ok {
		t.Fatal("expected a verification notification")
	}
	if msg.Kind != notify.KindEmailVerification {
		t.Errorf("notification kind = %q, want email_verification", msg.Kind)
	}
	if msg.Recipient != "carol@example.com" {
		t.Errorf("recipient = %q", msg.Recipient)
	}
	if msg.Token == "" {
		t.Error("verification notification missing token")
	}
}

func TestRegister_ReturnsTokenPairWithSession(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	resp := registerTestUser(t, svc)

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("registration must return both tokens")
	}

	sessions, err := svc.ListSessions(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("active sessions after register = %d, want 1", len(sessions))
	}

	// Both tokens are live: refresh rotates, access verifies.
	if _, err := svc.Refresh(ctx, resp.RefreshToken, SessionMeta{}); err != nil {
		t.Errorf("refresh token from registration must rotate: %v", err)
	}
	if _, _, err := svc.tokens.VerifyAccessToken(ctx, resp.AccessToken); err != nil {
		t.Errorf("access token from registration must verify: %v", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Email:       "carol@example.com",
		Password:    "another-password-1",
		DisplayName: "Carol Two",
	}, SessionMeta{})
	if !errors.Is(err, apperrors.ErrDuplicateCredential) {
		t.Errorf("expected ErrDuplicateCredential, got %v", err)
	}
}

func TestLogin_Succeeds(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{DeviceName: "browser"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.User.ID != registered.User.ID {
		t.Errorf("user id = %q, want %q", resp.User.ID, registered.User.ID)
	}

	stored, _ := users.GetByID(context.Background(), registered.User.ID)
	if stored.LastLogin == nil {
		t.Error("last login not stamped")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registerTestUser(t, svc)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "wrong-password-here",
	}, SessionMeta{})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	}, SessionMeta{})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestLogin_SuspendedAccount(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)

	users.mu.Lock()
	users.users[registered.User.ID].Status = model.StatusSuspended
	users.mu.Unlock()

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{})
	if !errors.Is(err, apperrors.ErrAccountNotActive) {
		t.Errorf("expected ErrAccountNotActive, got %v", err)
	}
}

func TestLogoutThenRefreshFails(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registerTestUser(t, svc)
	ctx := context.Background()

	resp, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(ctx, resp.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err = svc.Refresh(ctx, resp.RefreshToken, SessionMeta{})
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid after logout, got %v", err)
	}
}

func TestForgotPassword_UnknownEmailSilent(t *testing.T) {
	svc, _, _, dispatcher := newTestAuthService(t)

	if err := svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword must not error for unknown email: %v", err)
	}

	if _, ok := dispatcher.waitForMessage(100 * time.Millisecond); ok {
		t.Error("no notification must be sent for unknown email")
	}
}

func TestResetPassword_FullFlow(t *testing.T) {
	svc, _, _, dispatcher := newTestAuthService(t)
	registerTestUser(t, svc)
	ctx := context.Background()

	// Drain the registration notification.
	if _, ok := dispatcher.waitForMessage(2 * time.Second); !ok {
		t.Fatal("missing registration notification")
	}

	// Open a session that the reset must kill.
	login, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.ForgotPassword(ctx, "carol@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	msg, ok := dispatcher.waitForMessage(2 * time.Second)
	if !ok {
		t.Fatal("missing reset notification")
	}
	if msg.Kind != notify.KindPasswordReset {
		t.Fatalf("notification kind = %q, want password_reset", msg.Kind)
	}

	if err := svc.ResetPassword(ctx, dto.ResetPasswordRequest{
		Token:       msg.Token,
		NewPassword: "brand-new-password",
	}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Old session is dead.
	if _, err := svc.Refresh(ctx, login.RefreshToken, SessionMeta{}); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected old refresh token revoked, got %v", err)
	}

	// Old password no longer works, new one does.
	if _, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{}); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("old password must be rejected, got %v", err)
	}
	if _, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "brand-new-password",
	}, SessionMeta{}); err != nil {
		t.Errorf("new password must work: %v", err)
	}

	// The reset token is single-use.
	err = svc.ResetPassword(ctx, dto.ResetPasswordRequest{
		Token:       msg.Token,
		NewPassword: "yet-another-password",
	})
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid on reset token replay, got %v", err)
	}
}

func TestVerifyEmail_Flow(t *testing.T) {
	svc, users, _, dispatcher := newTestAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	msg, ok := dispatcher.waitForMessage(2 * time.Second)
	if !ok {
		t.Fatal("missing verification notification")
	}

	if err := svc.VerifyEmail(ctx, msg.Token); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	stored, _ := users.GetByID(ctx, registered.User.ID)
	if !stored.EmailVerified {
		t.Error("email not marked verified")
	}

	// Token is consumed.
	if err := svc.VerifyEmail(ctx, msg.Token); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid on verify replay, got %v", err)
	}
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	svc, users, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	users.mu.Lock()
	users.users[registered.User.ID].EmailVerified = true
	users.mu.Unlock()

	err := svc.ResendVerification(ctx, registered.User.ID)
	if !errors.Is(err, apperrors.ErrAlreadyVerified) {
		t.Errorf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestChangePassword_RevokesSessions(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.ChangePassword(ctx, registered.User.ID, dto.ChangePasswordRequest{
		CurrentPassword: "correct-horse-battery",
		NewPassword:     "a-new-password-now",
	}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Refresh(ctx, login.RefreshToken, SessionMeta{}); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected refresh token revoked after password change, got %v", err)
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)

	err := svc.ChangePassword(context.Background(), registered.User.ID, dto.ChangePasswordRequest{
		CurrentPassword: "not-the-password",
		NewPassword:     "a-new-password-now",
	})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestChangePassword_SameAsCurrentRejected(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)

	err := svc.ChangePassword(context.Background(), registered.User.ID, dto.ChangePasswordRequest{
		CurrentPassword: "correct-horse-battery",
		NewPassword:     "correct-horse-battery",
	})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unchanged password, got %v", err)
	}
}

func TestListAndTerminateSessions(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	for _, device := range []string{"laptop", "phone"} {
		if _, err := svc.Login(ctx, dto.LoginRequest{
			Email:    "carol@example.com",
			Password: "correct-horse-battery",
		}, SessionMeta{DeviceName: device}); err != nil {
			t.Fatalf("Login %s: %v", device, err)
		}
	}

	// Registration opened one session, the two logins two more.
	sessions, err := svc.ListSessions(ctx, registered.User.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("sessions = %d, want 3", len(sessions))
	}

	if err := svc.TerminateSession(ctx, registered.User.ID, sessions[0].ID); err != nil {
		t.Fatalf("TerminateSession: %v", err)
	}

	remaining, err := svc.ListSessions(ctx, registered.User.ID)
	if err != nil {
		t.Fatalf("ListSessions after terminate: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("sessions after terminate = %d, want 2", len(remaining))
	}
}

func TestTerminateSession_OtherUsersSessionRejected(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	if _, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	sessions, err := svc.ListSessions(ctx, registered.User.ID)
	if err != nil || len(sessions) == 0 {
		t.Fatalf("ListSessions: %v", err)
	}

	err = svc.TerminateSession(ctx, "someone-else", sessions[0].ID)
	if !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound for foreign session, got %v", err)
	}
}

func TestLogoutAll_KillsEverySession(t *testing.T) {
	svc, _, _, _ := newTestAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	first, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	second, err := svc.Login(ctx, dto.LoginRequest{
		Email:    "carol@example.com",
		Password: "correct-horse-battery",
	}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.LogoutAll(ctx, registered.User.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		if _, err := svc.Refresh(ctx, token, SessionMeta{}); !errors.Is(err, apperrors.ErrTokenInvalid) {
			t.Errorf("expected every refresh token revoked, got %v", err)
		}
	}
}
