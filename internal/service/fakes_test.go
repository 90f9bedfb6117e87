package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/skillforge/platform/internal/errors"
	"github.com/skillforge/platform/internal/model"
	"github.com/skillforge/platform/internal/notify"
	"github.com/skillforge/platform/internal/repository"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.users {
		if existing.Email == strings.ToLower(user.Email) {
			return apperrors.ErrDuplicateCredential
		}
		if user.Phone != "" && existing.Phone == user.Phone {
			return apperrors.ErrDuplicateCredential
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now().UTC()
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == strings.ToLower(email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		if user.Email == strings.ToLower(email) {
			return true, nil
		}
		if phone != "" && user.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateProfile(ctx context.Context, id string, displayName, phone string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.DisplayName = displayName
	user.Phone = phone
	return nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserStore) BumpTokenVersion(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.TokenVersion++
	return nil
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	now := time.Now().UTC()
	user.LastLogin = &now
	return nil
}

func (f *fakeUserStore) SetEmailVerified(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	user.EmailVerified = true
	user.EmailVerificationToken = ""
	user.EmailTokenExpiry = nil
	return nil
}

func (f *fakeUserStore) SetSingleUseToken(ctx context.Context, id string, purpose repository.TokenPurpose, token string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if purpose == repository.PurposePasswordReset {
		user.PasswordResetToken = token
		user.PasswordResetExpiry = &expiry
	} else {
		user.EmailVerificationToken = token
		user.EmailTokenExpiry = &expiry
	}
	return nil
}

func (f *fakeUserStore) FindBySingleUseToken(ctx context.Context, purpose repository.TokenPurpose, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.users {
		stored := user.EmailVerificationToken
		if purpose == repository.PurposePasswordReset {
			stored = user.PasswordResetToken
		}
		if stored != "" && stored == token {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) ClearSingleUseToken(ctx context.Context, id string, purpose repository.TokenPurpose, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[id]
	if !ok {
		return false, nil
	}

	if purpose == repository.PurposePasswordReset {
		if user.PasswordResetToken != token {
			return false, nil
		}
		user.PasswordResetToken = ""
		user.PasswordResetExpiry = nil
		return true, nil
	}

	if user.EmailVerificationToken != token {
		return false, nil
	}
	user.EmailVerificationToken = ""
	user.EmailTokenExpiry = nil
	return true, nil
}

// fakeTokenStore is an in-memory RefreshTokenStore.
type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*model.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*model.RefreshToken)}
}

func (f *fakeTokenStore) Create(ctx context.Context, token *model.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt = time.Now().UTC()
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeTokenStore) FindByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, token := range f.tokens {
		if token.TokenHash == tokenHash {
			clone := *token
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenStore) GetByID(ctx context.Context, id string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[id]
	if !ok {
		return nil, nil
	}
	clone := *token
	return &clone, nil
}

func (f *fakeTokenStore) Revoke(ctx context.Context, id string, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	token, ok := f.tokens[id]
	if !ok || token.IsRevoked {
		return false, nil
	}
	now := time.Now().UTC()
	token.IsRevoked = true
	token.RevokedAt = &now
	token.RevocationReason = reason
	return true, nil
}

func (f *fakeTokenStore) RevokeAllForUser(ctx context.Context, userID string, reason string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	now := time.Now().UTC()
	for _, token := range f.tokens {
		if token.UserID == userID && !token.IsRevoked {
			token.IsRevoked = true
			token.RevokedAt = &now
			token.RevocationReason = reason
			count++
		}
	}
	return count, nil
}

func (f *fakeTokenStore) ListActiveForUser(ctx context.Context, userID string) ([]model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	var out []model.RefreshToken
	for _, token := range f.tokens {
		if token.UserID == userID && !token.IsRevoked && token.ExpiresAt.After(now) {
			out = append(out, *token)
		}
	}
	return out, nil
}

func (f *fakeTokenStore) TouchLastUsed(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token, ok := f.tokens[id]; ok {
		now := time.Now().UTC()
		token.LastUsedAt = &now
	}
	return nil
}

func (f *fakeTokenStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for id, token := range f.tokens {
		if token.ExpiresAt.Before(cutoff) {
			delete(f.tokens, id)
			count++
		}
	}
	return count, nil
}

// fakeDispatcher records dispatched messages on a channel so tests can wait
// for async sends.
type fakeDispatcher struct {
	messages chan notify.Message
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{messages: make(chan notify.Message, 16)}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, msg notify.Message) error {
	f.messages <- msg
	return nil
}

// waitForMessage blocks until a message arrives or the timeout elapses.
func (f *fakeDispatcher) waitForMessage(timeout time.Duration) (notify.Message, bool) {
	select {
	case msg := <-f.messages:
		return msg, true
	case <-time.After(timeout):
		return notify.Message{}, false
	}
}

func testJWTConfig() JWTConfig {
	return JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "test",
	}
}
