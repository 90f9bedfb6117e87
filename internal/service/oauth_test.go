package service

import (
	"context"
	"errors"
	"testing"

	"github.com/skillforge/platform/internal/dto"
	apperrors "github.com/skillforge/platform/internal/errors"
)

type staticVerifier struct {
	identity *ExternalIdentity
	err      error
}

func (v *staticVerifier) Verify(ctx context.Context, provider, providerToken string) (*ExternalIdentity, error) {
	return v.identity, v.err
}

func newTestOAuthService(verifier IdentityVerifier) (*OAuthService, *fakeUserStore) {
	users := newFakeUserStore()
	tokens := NewTokenService(testJWTConfig(), users, newFakeTokenStore())
	return NewOAuthService(users, tokens, verifier), users
}

func TestOAuthLogin_CreatesAccountOnFirstSight(t *testing.T) {
	svc, users := newTestOAuthService(&staticVerifier{identity: &ExternalIdentity{
		Provider:      "google",
		Email:         "dave@example.com",
		DisplayName:   "Dave",
		EmailVerified: true,
	}})
	ctx := context.Background()

	resp, err := svc.Login(ctx, dto.OAuthLoginRequest{Provider: "google", ProviderToken: "tok"}, SessionMeta{})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if !resp.User.EmailVerified {
		t.Error("OAuth account must start email-verified")
	}

	stored, _ := users.GetByEmail(ctx, "dave@example.com")
	if stored == nil {
		t.Fatal("account not created")
	}

	// Second login reuses the same account.
	again, err := svc.Login(ctx, dto.OAuthLoginRequest{Provider: "google", ProviderToken: "tok"}, SessionMeta{})
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.User.ID != resp.User.ID {
		t.Errorf("second login created a new account: %q vs %q", again.User.ID, resp.User.ID)
	}
}

func TestOAuthLogin_UnverifiedIdentityRejected(t *testing.T) {
	svc, _ := newTestOAuthService(&staticVerifier{identity: &ExternalIdentity{
		Provider:      "google",
		Email:         "eve@example.com",
		EmailVerified: false,
	}})

	_, err := svc.Login(context.Background(), dto.OAuthLoginRequest{Provider: "google", ProviderToken: "tok"}, SessionMeta{})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestOAuthLogin_ProviderRejection(t *testing.T) {
	svc, _ := newTestOAuthService(&staticVerifier{err: errors.New("provider said no")})

	_, err := svc.Login(context.Background(), dto.OAuthLoginRequest{Provider: "google", ProviderToken: "bad"}, SessionMeta{})
	if !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestHTTPIdentityVerifier_UnsupportedProvider(t *testing.T) {
	verifier := NewHTTPIdentityVerifier(nil)

	if _, err := verifier.Verify(context.Background(), "github", "tok"); err == nil {
		t.Error("providers without a token-info endpoint must be rejected")
	}
}
