package usecase

import (
	"context"

	"github.com/taskyard/backend/domain"
)

// ThreadNotifier abstracts notification delivery so use cases stay
// transport-agnostic. Implementations must not fail the calling workflow on
// delivery problems; buffering for retry is their concern.
type ThreadNotifier interface {
	CommentPosted(ctx context.Context, task *domain.Task, comment *domain.Comment, recipients []domain.User) error
}
