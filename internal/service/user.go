package service

import (
	"context"

	"github.com/skillforge/platform/internal/dto"
	apperrors "github.com/skillforge/platform/internal/errors"
	ctxutil "github.com/skillforge/platform/pkg/context"
	"github.com/skillforge/platform/pkg/logger"
)

// UserService serves profile reads and updates for the authenticated user.
type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetProfile")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// UpdateProfile applies the non-empty fields of the request. Email changes
// are deliberately not supported here; the address is the login credential.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateProfile")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if user == nil {
		return nil, apperrors.ErrUserNotFound
	}

	displayName := user.DisplayName
	if req.DisplayName != "" {
		displayName = req.DisplayName
	}
	phone := user.Phone
	if req.Phone != "" {
		phone = req.Phone
	}

	if err := s.users.UpdateProfile(ctx, userID, displayName, phone); err != nil {
		return nil, err
	}

	logger.InfoWithContext(ctx, "Profile updated").
		String("user_id", userID).
		Log()

	user.DisplayName = displayName
	user.Phone = phone
	resp := toUserResponse(user)
	return &resp, nil
}
