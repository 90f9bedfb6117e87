package service

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	"github.com/skillforge/platform/internal/repository"
)

func newTestSingleUseService(t *testing.T) (*SingleUseTokenService, *fakeUserStore, *model.User) {
	t.Helper()

	users := newFakeUserStore()
	svc := NewSingleUseTokenService(SingleUseConfig{
		VerificationTTL: 24 * time.Hour,
		ResetTTL:        time.Hour,
	}, users)

	user := &model.User{
		Email:        "bob@example.com",
		DisplayName:  "Bob",
		PasswordHash: "irrelevant",
		Role:         model.RoleUser,
		Status:       model.StatusActive,
		TokenVersion: 1,
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return svc, users, user
}

func TestSingleUse_IssueAndConsume(t *testing.T) {
	svc, _, user := newTestSingleUseService(t)
	ctx := context.Background()

	token, err := svc.Issue(ctx, user.ID, repository.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(token))
	}

	consumed, err := svc.Consume(ctx, repository.PurposeEmailVerification, token)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if consumed.ID != user.ID {
		t.Errorf("consumed user = %q, want %q", consumed.ID, user.ID)
	}
}

func TestSingleUse_ReplayFails(t *testing.T) {
	svc, _, user := newTestSingleUseService(t)
	ctx := context.Background()

	token, err := svc.Issue(ctx, user.ID, repository.PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := svc.Consume(ctx, repository.PurposePasswordReset, token); err != nil {
		t.Fatalf("first Consume: %v", err)
	}

	_, err = svc.Consume(ctx, repository.PurposePasswordReset, token)
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid on replay, got %v", err)
	}
}

func TestSingleUse_UnknownToken(t *testing.T) {
	svc, _, _ := newTestSingleUseService(t)

	_, err := svc.Consume(context.Background(), repository.PurposeEmailVerification, "deadbeef")
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}

	_, err = svc.Consume(context.Background(), repository.PurposeEmailVerification, "")
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestSingleUse_ExpiredToken(t *testing.T) {
	svc, users, user := newTestSingleUseService(t)
	ctx := context.Background()

	token, err := svc.Issue(ctx, user.ID, repository.PurposePasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	users.mu.Lock()
	users.users[user.ID].PasswordResetExpiry = &past
	users.mu.Unlock()

	_, err = svc.Consume(ctx, repository.PurposePasswordReset, token)
	if !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSingleUse_ReissueInvalidatesPrevious(t *testing.T) {
	svc, _, user := newTestSingleUseService(t)
	ctx := context.Background()

	first, err := svc.Issue(ctx, user.ID, repository.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("first Issue: %v", err)
	}
	second, err := svc.Issue(ctx, user.ID, repository.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}
	if first == second {
		t.Fatal("reissue must generate a different token")
	}

	if _, err := svc.Consume(ctx, repository.PurposeEmailVerification, first); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("replaced token must be invalid, got %v", err)
	}
	if _, err := svc.Consume(ctx, repository.PurposeEmailVerification, second); err != nil {
		t.Errorf("latest token must consume cleanly, got %v", err)
	}
}

func TestSingleUse_PurposesAreIsolated(t *testing.T) {
	svc, _, user := newTestSingleUseService(t)
	ctx := context.Background()

	verifyToken, err := svc.Issue(ctx, user.ID, repository.PurposeEmailVerification)
	if err != nil {
		t.Fatalf("Issue verification: %v", err)
	}

	// A verification token must not work as a reset token.
	_, err = svc.Consume(ctx, repository.PurposePasswordReset, verifyToken)
	if !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("cross-purpose consume must fail, got %v", err)
	}
}
