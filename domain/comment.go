package domain

import "time"

// Comment is a single entry in a task's discussion thread. Comments are
// immutable after creation; only a task merge may move them to another task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a file uploaded alongside a comment. The file bytes live on
// disk; the record keeps the reference. TaskID is denormalized so merges and
// per-task listings stay single-table operations.
type Attachment struct {
	ID          string    `json:"id"`
	CommentID   string    `json:"comment_id"`
	TaskID      string    `json:"task_id"`
	FileName    string    `json:"file_name"`
	StoredPath  string    `json:"stored_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
