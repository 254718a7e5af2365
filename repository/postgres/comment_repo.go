package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
)

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository returns a Postgres-backed implementation of CommentRepository.
func NewCommentRepository(pool *pgxpool.Pool) repository.CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	const query = `
	SELECT id, task_id, author_id, body, created_at
	FROM comments
	WHERE task_id = $1
	ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *commentRepository) CreateWithAttachments(ctx context.Context, comment *domain.Comment, attachments []domain.Attachment) error {
	if comment == nil || comment.TaskID == "" || comment.AuthorID == "" {
		return domain.ErrInvalidPayload
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx,
		`INSERT INTO comments (id, task_id, author_id, body) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		comment.ID, comment.TaskID, comment.AuthorID, comment.Body,
	).Scan(&comment.CreatedAt); err != nil {
		return err
	}

	for i := range attachments {
		att := &attachments[i]
		if att.ID == "" {
			att.ID = uuid.NewString()
		}
		att.CommentID = comment.ID
		att.TaskID = comment.TaskID
		if err := tx.QueryRow(ctx,
			`INSERT INTO attachments (id, comment_id, task_id, file_name, stored_path, size, content_type)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING uploaded_at`,
			att.ID, att.CommentID, att.TaskID, att.FileName, att.StoredPath, att.Size, att.ContentType,
		).Scan(&att.UploadedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *commentRepository) ThreadParticipants(ctx context.Context, taskID string) ([]domain.User, error) {
	const query = `
	SELECT DISTINCT u.id, u.email, u.display_name, u.is_staff, u.is_superuser, u.status, u.created_at, u.updated_at
	FROM users u
	JOIN comments c ON c.author_id = u.id
	WHERE c.task_id = $1
	`
	rows, err := r.pool.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&u.ID, &u.Email, &u.DisplayName, &u.IsStaff, &u.IsSuperuser, &u.Status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = createdAt
		u.UpdatedAt = updatedAt
		users = append(users, u)
	}
	return users, rows.Err()
}
