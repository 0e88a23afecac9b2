package models

import "time"

// Mail task statuses. A task moves pending -> processing -> sent|failed and
// never leaves a terminal state without operator intervention.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskSent       = "sent"
	TaskFailed     = "failed"
)

// MailTask is one durable queued notification email.
type MailTask struct {
	ID        int       `json:"id"`
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	Payload   string    `json:"payload"`
	IsTest    bool      `json:"is_test"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
