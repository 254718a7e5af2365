package repository

import (
	"context"

	"github.com/taskyard/backend/domain"
)

type CommentRepository interface {
	ListByTask(ctx context.Context, taskID string) ([]domain.Comment, error)
	// CreateWithAttachments persists a comment and its attachment records in
	// a single transaction: either everything lands or nothing does.
	CreateWithAttachments(ctx context.Context, comment *domain.Comment, attachments []domain.Attachment) error
	// ThreadParticipants returns the distinct authors of the task's comments.
	ThreadParticipants(ctx context.Context, taskID string) ([]domain.User, error)
}

type AttachmentRepository interface {
	ListByTask(ctx context.Context, taskID string) ([]domain.Attachment, error)
	ListByComment(ctx context.Context, commentID string) ([]domain.Attachment, error)
}
