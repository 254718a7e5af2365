package transport

import "github.com/taskyard/backend/domain"

// Dispatch field names accepted by the task mutation endpoint. At most one
// may be present per request.
const (
	FieldAddComment    = "add_comment"
	FieldAddEditTask   = "add_edit_task"
	FieldToggleDone    = "toggle_done"
	FieldMergeTaskInto = "merge_task_into"

	FieldCommentBody = "body"
	FieldAttachments = "attachments"
	FieldTitle       = "title"
	FieldNote        = "note"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
	FieldMergeTarget = "merge_target"
)

type ProfileUpdateRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

// TaskDetail is the representation of a task's current state: the task, its
// comment thread and attachments.
type TaskDetail struct {
	Task         *domain.Task        `json:"task"`
	Comments     []domain.Comment    `json:"comments"`
	Attachments  []domain.Attachment `json:"attachments,omitempty"`
	MergeEnabled bool                `json:"merge_enabled"`
}
