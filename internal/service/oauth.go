package service

import (
	"context"

	"github.com/skillforge/platform/internal/dto"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
)

// ExternalIdentity is a provider-verified identity. Only identities whose
// email the provider has already verified are accepted for login.
type ExternalIdentity struct {
	Provider      string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// IdentityVerifier validates a provider token and returns the identity
// behind it. Implementations call the provider's tokeninfo endpoint.
type IdentityVerifier interface {
	Verify(ctx context.Context, provider, providerToken string) (*ExternalIdentity, error)
}

// OAuthService logs users in via an external identity provider, creating
// the account on first sight. OAuth accounts have no usable password until
// the user sets one through the reset flow.
type OAuthService struct {
	users    UserStore
	tokens   *TokenService
	verifier IdentityVerifier
}

func NewOAuthService(users UserStore, tokens *TokenService, verifier IdentityVerifier) *OAuthService {
	return &OAuthService{
		users:    users,
		tokens:   tokens,
		verifier: verifier,
	}
}

// Login verifies the provider token and finds or creates the local account.
func (s *OAuthService) Login(ctx context.Context, req dto.OAuthLoginRequest, meta SessionMeta) (*dto.AuthResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "OAuthLogin")

	identity, err := s.verifier.Verify(ctx, req.Provider, req.ProviderToken)
	if err != nil {
		logger.WarnWithContext(ctx, "Provider token verification failed").
			String("provider", req.Provider).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInvalidCredentials, err)
	}

	if !identity.EmailVerified {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user == nil {
		user = &model.User{
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
			// Random placeholder; never matches any login attempt since
			// it is not a bcrypt hash.
			PasswordHash:  "!oauth:" + identity.Provider,
			Role:          model.RoleUser,
			Status:        model.StatusActive,
			EmailVerified: true,
			TokenVersion:  1,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}

		logger.InfoWithContext(ctx, "Account created from external identity").
			String("user_id", user.ID).
			String("provider", identity.Provider).
			Log()
	}

	if !user.IsActive() {
		return nil, apperrors.ErrAccountNotActive
	}

	pair, err := s.tokens.IssuePair(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to stamp last login").
			String("user_id", user.ID).
			Err(err).
			Log()
	}

	return &dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		User:         toUserResponse(user),
	}, nil
}
