package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
)

type UseCase struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		logger: logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

// UpdateProfile lets users change their own contact fields. Staff and
// superuser flags are administrative and never taken from the request.
func (uc *UseCase) UpdateProfile(ctx context.Context, userID, email, displayName string) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if email != "" {
		user.Email = email
	}
	if displayName != "" {
		user.DisplayName = displayName
	}

	if err := uc.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
