package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
)

type taskListRepository struct {
	pool *pgxpool.Pool
}

// NewTaskListRepository returns a Postgres-backed implementation of TaskListRepository.
func NewTaskListRepository(pool *pgxpool.Pool) repository.TaskListRepository {
	return &taskListRepository{pool: pool}
}

func (r *taskListRepository) GetByID(ctx context.Context, id string) (*domain.TaskList, error) {
	const query = `
	SELECT id, name, slug, created_at, updated_at
	FROM task_lists
	WHERE id = $1
	`
	var list domain.TaskList
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&list.ID, &list.Name, &list.Slug, &list.CreatedAt, &list.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

func (r *taskListRepository) IsMember(ctx context.Context, listID, userID string) (bool, error) {
	const query = `
	SELECT EXISTS (
		SELECT 1 FROM task_list_members
		WHERE list_id = $1 AND user_id = $2
	)
	`
	var member bool
	if err := r.pool.QueryRow(ctx, query, listID, userID).Scan(&member); err != nil {
		return false, err
	}
	return member, nil
}
