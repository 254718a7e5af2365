package access

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
)

// Service decides task visibility. Superusers see everything; in staff-only
// mode non-staff users see nothing; everyone else needs membership in the
// task's owning list.
type Service struct {
	lists     repository.TaskListRepository
	staffOnly bool
	logger    *zap.Logger
}

func New(lists repository.TaskListRepository, staffOnly bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		lists:     lists,
		staffOnly: staffOnly,
		logger:    logger,
	}
}

// CanReadList reports whether the user may see the list and its tasks. Any
// ambiguity (missing data, repository failure) denies.
func (s *Service) CanReadList(ctx context.Context, listID string, user *domain.User) bool {
	if listID == "" || user == nil {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	if s.staffOnly && !user.IsStaff {
		return false
	}

	member, err := s.lists.IsMember(ctx, listID, user.ID)
	if err != nil {
		s.logger.Warn("membership check failed, denying access",
			zap.String("list_id", listID),
			zap.String("user_id", user.ID),
			zap.Error(err))
		return false
	}
	return member
}

// CanReadTask applies the list policy to the task's owning list.
func (s *Service) CanReadTask(ctx context.Context, task *domain.Task, user *domain.User) bool {
	if task == nil {
		return false
	}
	return s.CanReadList(ctx, task.ListID, user)
}

// AuthorizeRead translates a denial into a forbidden error so callers can
// abort without leaking task content.
func (s *Service) AuthorizeRead(ctx context.Context, task *domain.Task, user *domain.User) error {
	if !s.CanReadTask(ctx, task, user) {
		return domain.ErrForbidden
	}
	return nil
}
