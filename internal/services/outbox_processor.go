package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskyard/backend/internal/infrastructure/outbox"
)

// MailSender abstracts the SMTP mailer.
type MailSender interface {
	Send(ctx context.Context, subject, body string, recipients []string) error
}

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// OutboxProcessor re-drives notifications that could not be delivered inline.
type OutboxProcessor struct {
	store  *outbox.Store
	mailer MailSender
	logger *zap.Logger
	cron   *cron.Cron
	cfg    ProcessorConfig
}

func NewOutboxProcessor(store *outbox.Store, mailer MailSender, logger *zap.Logger, cfg ProcessorConfig) *OutboxProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	op := &OutboxProcessor{
		store:  store,
		mailer: mailer,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = op.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := op.Drain(ctx); err != nil {
			op.logger.Error("outbox drain failed", zap.Error(err))
		}
	})

	return op
}

// Start launches the cron scheduler.
func (op *OutboxProcessor) Start() {
	if op == nil || op.cron == nil {
		return
	}
	op.cron.Start()
	op.logger.Info("outbox processor started")
}

// Stop gracefully stops the scheduler.
func (op *OutboxProcessor) Stop(ctx context.Context) {
	if op == nil || op.cron == nil {
		return
	}
	stopCtx := op.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	op.logger.Info("outbox processor stopped")
}

// Drain attempts redelivery of pending messages and expires stale ones.
func (op *OutboxProcessor) Drain(ctx context.Context) error {
	if op == nil || op.store == nil {
		return nil
	}

	if err := op.store.Cleanup(time.Now().Add(-op.cfg.Retention)); err != nil {
		op.logger.Warn("outbox cleanup failed", zap.Error(err))
	}

	msgs, err := op.store.GetBatch(op.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, msg := range msgs {
		if err := op.mailer.Send(ctx, msg.Subject, msg.Body, msg.Recipients); err != nil {
			op.logger.Error("failed to deliver outbox message",
				zap.String("message_id", msg.ID),
				zap.String("task_id", msg.TaskID),
				zap.Error(err))

			msg.Retries++
			if msg.Retries >= op.cfg.MaxRetries {
				op.logger.Warn("dropping outbox message (max retries reached)", zap.String("message_id", msg.ID))
				_ = op.store.Remove(msg)
				continue
			}

			// Requeue under a fresh key before dropping the old one: a
			// failure then duplicates the message instead of losing it.
			if err := op.store.Requeue(msg); err != nil {
				op.logger.Error("failed to requeue outbox message", zap.Error(err))
				continue
			}
			if err := op.store.Remove(msg); err != nil {
				op.logger.Warn("failed to remove outbox message", zap.Error(err))
			}
			continue
		}

		if err := op.store.Remove(msg); err != nil {
			op.logger.Warn("failed to purge delivered outbox message", zap.Error(err))
		}
	}
	return nil
}

// Dispatch tries immediate delivery and falls back to persisting the message
// for the drain loop.
func (op *OutboxProcessor) Dispatch(ctx context.Context, msg outbox.Message) error {
	if op == nil || op.store == nil {
		return fmt.Errorf("outbox processor not configured")
	}

	if err := op.mailer.Send(ctx, msg.Subject, msg.Body, msg.Recipients); err == nil {
		return nil
	} else {
		op.logger.Warn("immediate delivery failed, buffering notification", zap.Error(err))
	}
	return op.store.Enqueue(msg)
}

// Size returns the number of pending messages.
func (op *OutboxProcessor) Size() int {
	if op == nil || op.store == nil {
		return 0
	}
	size, err := op.store.Size()
	if err != nil {
		return 0
	}
	return size
}
