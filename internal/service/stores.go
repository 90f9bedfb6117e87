package service

import (
	"context"
	"time"

	"github.com/skillforge/platform/internal/model"
	"github.com/skillforge/platform/internal/repository"
)

// UserStore is the persistence surface the services need for accounts.
// *repository.UserRepository satisfies it; tests substitute in-memory fakes.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	UpdateProfile(ctx context.Context, id string, displayName, phone string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	BumpTokenVersion(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
	SetEmailVerified(ctx context.Context, id string) error
	SetSingleUseToken(ctx context.Context, id string, purpose repository.TokenPurpose, token string, expiry time.Time) error
	FindBySingleUseToken(ctx context.Context, purpose repository.TokenPurpose, token string) (*model.User, error)
	ClearSingleUseToken(ctx context.Context, id string, purpose repository.TokenPurpose, token string) (bool, error)
}

// RefreshTokenStore is the persistence surface for the refresh-token ledger.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	GetByID(ctx context.Context, id string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, reason string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, reason string) (int64, error)
	ListActiveForUser(ctx context.Context, userID string) ([]model.RefreshToken, error)
	TouchLastUsed(ctx context.Context, id string) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
