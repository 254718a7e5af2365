package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, list_id, title, note, priority, due_date, completed, completed_at, created_by, merged_into, created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR list_id = $1)
	  AND ($2::boolean IS NULL OR completed = $2)
	  AND merged_into IS NULL
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.ListID, filter.Completed, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, list_id, title, note, priority, due_date, completed, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.ListID,
		task.Title,
		task.Note,
		task.Priority,
		task.DueDate,
		task.Completed,
		task.CreatedBy,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		note = $3,
		priority = $4,
		due_date = $5,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Note,
		task.Priority,
		task.DueDate,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) SetCompleted(ctx context.Context, id string, done bool) (bool, error) {
	// completed_at tracks only the most recent transition to done.
	const query = `
	UPDATE tasks
	SET completed = $2,
		completed_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		updated_at = NOW()
	WHERE id = $1 AND completed <> $2
	`
	tag, err := r.pool.Exec(ctx, query, id, done)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// No row changed: distinguish "already in that state" from "missing".
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, domain.ErrTaskNotFound
	}
	return false, nil
}

func (r *taskRepository) Merge(ctx context.Context, sourceID, targetID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE comments SET task_id = $2 WHERE task_id = $1`, sourceID, targetID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE attachments SET task_id = $2 WHERE task_id = $1`, sourceID, targetID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET merged_into = $2, updated_at = NOW() WHERE id = $1 AND merged_into IS NULL`,
		sourceID, targetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}

	return tx.Commit(ctx)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		due         *time.Time
		completedAt *time.Time
		mergedInto  *string
	)

	if err := row.Scan(
		&task.ID,
		&task.ListID,
		&task.Title,
		&task.Note,
		&task.Priority,
		&due,
		&task.Completed,
		&completedAt,
		&task.CreatedBy,
		&mergedInto,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.DueDate = due
	task.CompletedAt = completedAt
	if mergedInto != nil {
		task.MergedInto = *mergedInto
	}

	return &task, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
