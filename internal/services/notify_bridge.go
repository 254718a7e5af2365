package services

import (
	"context"
	"fmt"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/internal/infrastructure/outbox"
	"github.com/taskyard/backend/usecase"
)

// NotifyBridge adapts the outbox processor to the use-case notifier port.
type NotifyBridge struct {
	processor *OutboxProcessor
}

func NewNotifyBridge(processor *OutboxProcessor) *NotifyBridge {
	return &NotifyBridge{processor: processor}
}

// CommentPosted emails every recipient that a new comment landed on the task.
// Recipients without an email address are skipped.
func (b *NotifyBridge) CommentPosted(ctx context.Context, task *domain.Task, comment *domain.Comment, recipients []domain.User) error {
	if b.processor == nil || task == nil || comment == nil {
		return domain.ErrInvalidPayload
	}

	addresses := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if r.Email != "" {
			addresses = append(addresses, r.Email)
		}
	}
	if len(addresses) == 0 {
		return nil
	}

	msg := outbox.Message{
		TaskID:     task.ID,
		Subject:    fmt.Sprintf("New comment posted on task %q", task.Title),
		Body:       comment.Body,
		Recipients: addresses,
		Priority:   3,
	}
	return b.processor.Dispatch(ctx, msg)
}

var _ usecase.ThreadNotifier = (*NotifyBridge)(nil)
