package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/repository"
)

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository returns a Postgres-backed implementation of AttachmentRepository.
func NewAttachmentRepository(pool *pgxpool.Pool) repository.AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const attachmentColumns = `id, comment_id, task_id, file_name, stored_path, size, content_type, uploaded_at`

func (r *attachmentRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	const query = `
	SELECT ` + attachmentColumns + `
	FROM attachments
	WHERE task_id = $1
	ORDER BY uploaded_at DESC
	`
	return r.list(ctx, query, taskID)
}

func (r *attachmentRepository) ListByComment(ctx context.Context, commentID string) ([]domain.Attachment, error) {
	const query = `
	SELECT ` + attachmentColumns + `
	FROM attachments
	WHERE comment_id = $1
	ORDER BY uploaded_at DESC
	`
	return r.list(ctx, query, commentID)
}

func (r *attachmentRepository) list(ctx context.Context, query, arg string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.CommentID, &a.TaskID, &a.FileName, &a.StoredPath, &a.Size, &a.ContentType, &a.UploadedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
