package model

import "time"

type ScheduledJobStatus string

const (
	ScheduledJobStatusPending   ScheduledJobStatus = "PENDING"
	ScheduledJobStatusActive    ScheduledJobStatus = "ACTIVE"
	ScheduledJobStatusCompleted ScheduledJobStatus = "COMPLETED"
	ScheduledJobStatusFailed    ScheduledJobStatus = "FAILED"
	ScheduledJobStatusCancelled ScheduledJobStatus = "CANCELLED"
)

type JobPriority string

const (
	JobPriorityLow    JobPriority = "LOW"
	JobPriorityNormal JobPriority = "NORMAL"
	JobPriorityHigh   JobPriority = "HIGH"
)

// QueueWeight maps priority to the numeric weight used by the delay queue;
// lower dequeues first among due jobs.
func (p JobPriority) QueueWeight() int {
	switch p {
	case JobPriorityHigh:
		return 1
	case JobPriorityLow:
		return 3
	default:
		return 2
	}
}

// ScheduledJob is a deferred publish intent. At most one non-terminal job may
// exist per contentId + identical account set.
type ScheduledJob struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	ContentID     string             `json:"content_id"`
	AccountIDs    []string           `json:"account_ids"`
	ScheduledAt   time.Time          `json:"scheduled_at"` // UTC fire time
	Timezone      string             `json:"timezone"`     // IANA, informational
	Priority      JobPriority        `json:"priority"`
	Status        ScheduledJobStatus `json:"status"`
	Attempts      int                `json:"attempts"`
	MaxAttempts   int                `json:"max_attempts"`
	ExternalJobID *string            `json:"external_job_id,omitempty"`
	ErrorMessage  *string            `json:"error_message,omitempty"`
	ProcessedAt   *time.Time         `json:"processed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
