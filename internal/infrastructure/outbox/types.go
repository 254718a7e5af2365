package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Message is a pending notification email that could not be delivered inline
// and is retried by the outbox processor.
type Message struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Recipients []string  `json:"recipients"`
	Priority   int       `json:"priority"`
	Retries    int       `json:"retries"`
	Timestamp  time.Time `json:"timestamp"`

	bucketKey []byte
}

func (m *Message) normalize() {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Priority <= 0 || m.Priority > 5 {
		m.Priority = 3
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
}
