package repository

import (
	"context"

	"github.com/taskyard/backend/domain"
)

type TaskListRepository interface {
	GetByID(ctx context.Context, id string) (*domain.TaskList, error)
	// IsMember reports whether the user belongs to the list's group.
	IsMember(ctx context.Context, listID, userID string) (bool, error)
}
