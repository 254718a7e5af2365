package comment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/taskyard/backend/domain"
	"github.com/taskyard/backend/pkg/logger"
	"github.com/taskyard/backend/repository"
	"github.com/taskyard/backend/usecase"
)

// Upload carries one submitted attachment before validation.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Policy holds the comment and attachment constraints from configuration.
type Policy struct {
	MaxBodyLength      int
	AttachmentsEnabled bool
	MaxAttachmentSize  int64
	AllowedExtensions  []string
}

// BlobStore abstracts attachment byte storage.
type BlobStore interface {
	Save(originalName string, data []byte) (string, error)
	Remove(storedName string) error
}

// Service implements the comment/attachment submission workflow.
type Service struct {
	comments repository.CommentRepository
	files    BlobStore
	notifier usecase.ThreadNotifier
	policy   Policy
	logger   *zap.Logger
}

func New(comments repository.CommentRepository, files BlobStore, notifier usecase.ThreadNotifier, policy Policy, logger *zap.Logger) *Service {
	if policy.MaxBodyLength <= 0 {
		policy.MaxBodyLength = 4000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		comments: comments,
		files:    files,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
	}
}

// ListThread returns the task's comments, newest first.
func (s *Service) ListThread(ctx context.Context, taskID string) ([]domain.Comment, error) {
	return s.comments.ListByTask(ctx, taskID)
}

// AddComment validates and persists a comment plus its attachments as one
// unit, then notifies prior thread participants. Nothing is persisted when
// any part fails validation.
func (s *Service) AddComment(ctx context.Context, task *domain.Task, author *domain.User, body string, uploads []Upload) (*domain.Comment, error) {
	if task == nil || author == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.IsMerged() {
		return nil, domain.ErrTaskMerged
	}

	if verr := s.validate(body, uploads); verr.HasErrors() {
		return nil, verr
	}

	// Participants are captured before the insert so the new comment's
	// author never counts as a prior participant.
	participants, err := s.comments.ThreadParticipants(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	attachments, stored, err := s.storeUploads(uploads)
	if err != nil {
		return nil, err
	}

	cmt := &domain.Comment{
		TaskID:   task.ID,
		AuthorID: author.ID,
		Body:     strings.TrimSpace(body),
	}
	if err := s.comments.CreateWithAttachments(ctx, cmt, attachments); err != nil {
		s.discard(stored)
		return nil, err
	}

	s.notify(ctx, task, cmt, author, participants)
	return cmt, nil
}

func (s *Service) validate(body string, uploads []Upload) *domain.ValidationError {
	verr := domain.NewValidationError()

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		verr.Add("body", "this field is required")
	} else if len(trimmed) > s.policy.MaxBodyLength {
		verr.Add("body", fmt.Sprintf("must be at most %d characters", s.policy.MaxBodyLength))
	}

	if len(uploads) > 0 && !s.policy.AttachmentsEnabled {
		verr.Add("attachments", "file attachments are not allowed")
		return verr
	}

	for _, up := range uploads {
		if s.policy.MaxAttachmentSize > 0 && int64(len(up.Data)) > s.policy.MaxAttachmentSize {
			verr.Add("attachments", fmt.Sprintf("%s exceeds the maximum attachment size", up.FileName))
		}
		if !s.extensionAllowed(up.FileName) {
			verr.Add("attachments", fmt.Sprintf("files of type %s are not allowed", filepath.Ext(up.FileName)))
		}
	}

	return verr
}

func (s *Service) extensionAllowed(fileName string) bool {
	if len(s.policy.AllowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, allowed := range s.policy.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func (s *Service) storeUploads(uploads []Upload) ([]domain.Attachment, []string, error) {
	var (
		attachments []domain.Attachment
		stored      []string
	)
	for _, up := range uploads {
		name, err := s.files.Save(up.FileName, up.Data)
		if err != nil {
			s.discard(stored)
			return nil, nil, err
		}
		stored = append(stored, name)
		attachments = append(attachments, domain.Attachment{
			FileName:    up.FileName,
			StoredPath:  name,
			Size:        int64(len(up.Data)),
			ContentType: up.ContentType,
		})
	}
	return attachments, stored, nil
}

func (s *Service) discard(stored []string) {
	for _, name := range stored {
		if err := s.files.Remove(name); err != nil {
			s.logger.Warn("failed to remove stored attachment", zap.String("file", name), zap.Error(err))
		}
	}
}

func (s *Service) notify(ctx context.Context, task *domain.Task, cmt *domain.Comment, author *domain.User, participants []domain.User) {
	if s.notifier == nil {
		return
	}
	recipients := participants[:0:0]
	for _, p := range participants {
		if p.ID != author.ID {
			recipients = append(recipients, p)
		}
	}
	if len(recipients) == 0 {
		return
	}
	if err := s.notifier.CommentPosted(ctx, task, cmt, recipients); err != nil {
		logger.FromContext(ctx, s.logger).Error("thread notification failed",
			zap.String("task_id", task.ID),
			zap.String("comment_id", cmt.ID),
			zap.Error(err))
	}
}
