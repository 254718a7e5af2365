package domain

import "time"

// Task represents a single to-do item owned by a task list.
type Task struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Note        string     `json:"note,omitempty"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
	MergedInto  string     `json:"merged_into,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsMerged reports whether this task has been merged away and must no
// longer be served as a live task.
func (t *Task) IsMerged() bool {
	return t != nil && t.MergedInto != ""
}
