package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/pkg/logger"
	"github.com/taskyard/backend/repository"
)

const maxTitleLength = 250

// ReadGate abstracts the permission check so the merge workflow can verify
// the acting user may see the merge target.
type ReadGate interface {
	CanReadTask(ctx context.Context, task *domain.Task, user *domain.User) bool
}

// EditRequest carries the editable task fields.
type EditRequest struct {
	Title    string
	Note     string
	Priority int
	DueDate  *time.Time
}

// Service implements the task edit, completion toggle and merge workflows.
type Service struct {
	tasks        repository.TaskRepository
	gate         ReadGate
	sanitizer    *bluemonday.Policy
	mergeEnabled bool
	logger       *zap.Logger
}

func New(tasks repository.TaskRepository, gate ReadGate, mergeEnabled bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tasks: tasks,
		gate:  gate,
		// strip every tag, keep the text content
		sanitizer:    bluemonday.StrictPolicy(),
		mergeEnabled: mergeEnabled,
		logger:       logger,
	}
}

// MergeEnabled reports whether the merge capability is switched on.
func (s *Service) MergeEnabled() bool {
	return s.mergeEnabled
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	return s.tasks.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return s.tasks.List(ctx, filter)
}

// Edit validates and persists field edits. The title is stripped of any
// markup before storage.
func (s *Service) Edit(ctx context.Context, taskID string, req EditRequest) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsMerged() {
		return nil, domain.ErrTaskMerged
	}

	title := strings.TrimSpace(s.sanitizer.Sanitize(req.Title))
	verr := domain.NewValidationError()
	if title == "" {
		verr.Add("title", "this field is required")
	} else if len(title) > maxTitleLength {
		verr.Add("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	if verr.HasErrors() {
		return nil, verr
	}

	task.Title = title
	task.Note = req.Note
	task.Priority = req.Priority
	task.DueDate = req.DueDate

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SetCompleted stores the desired completion state and reports whether it
// actually changed, so callers can distinguish a no-op from a transition.
func (s *Service) SetCompleted(ctx context.Context, taskID string, done bool) (*domain.Task, bool, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	if task.IsMerged() {
		return nil, false, domain.ErrTaskMerged
	}

	changed, err := s.tasks.SetCompleted(ctx, taskID, done)
	if err != nil {
		return nil, false, err
	}

	task, err = s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, false, err
	}
	return task, changed, nil
}

// Merge consolidates the source task's comment history into the target and
// retires the source. The acting user must be able to read the target.
func (s *Service) Merge(ctx context.Context, user *domain.User, source *domain.Task, targetID string) (*domain.Task, error) {
	if !s.mergeEnabled {
		return nil, domain.ErrMergeUnavailable
	}
	if source == nil || user == nil {
		return nil, domain.ErrInvalidPayload
	}
	if source.IsMerged() {
		return nil, domain.ErrTaskMerged
	}
	if targetID == "" || targetID == source.ID {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid merge target", nil)
	}

	target, err := s.tasks.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.IsMerged() {
		return nil, domain.ErrTaskMerged
	}
	if s.gate != nil && !s.gate.CanReadTask(ctx, target, user) {
		return nil, domain.ErrForbidden
	}

	if err := s.tasks.Merge(ctx, source.ID, target.ID); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("task merged",
		zap.String("source_id", source.ID),
		zap.String("target_id", target.ID),
		zap.String("user_id", user.ID))
	return target, nil
}
