package repository

import (
	"context"

	"github.com/taskyard/backend/domain"
)

type TaskFilter struct {
	ListID    string
	Completed *bool
	Limit     int
	Offset    int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	// SetCompleted stores the desired completion state and reports whether
	// the stored value actually changed.
	SetCompleted(ctx context.Context, id string, done bool) (bool, error)
	// Merge reassigns the source task's comments and attachments to the
	// target and marks the source as merged, all in one transaction.
	Merge(ctx context.Context, sourceID, targetID string) error
	Delete(ctx context.Context, id string) error
}
