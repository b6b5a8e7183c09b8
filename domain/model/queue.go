package model

import "time"

type QueueJobState string

const (
	QueueJobWaiting   QueueJobState = "waiting"
	QueueJobDelayed   QueueJobState = "delayed"
	QueueJobActive    QueueJobState = "active"
	QueueJobCompleted QueueJobState = "completed"
	QueueJobFailed    QueueJobState = "failed"
)

// QueueJobSnapshot is the queue-visible view of one enqueued job.
type QueueJobSnapshot struct {
	ExternalID string        `json:"external_id"`
	State      QueueJobState `json:"state"`
	Progress   int           `json:"progress"` // 0-100
	Attempts   int           `json:"attempts"`
	LastError  string        `json:"last_error,omitempty"`
}

// QueueCounts is a point-in-time depth snapshot of one queue.
type QueueCounts struct {
	Name      string `json:"name"`
	Waiting   int64  `json:"waiting"`
	Delayed   int64  `json:"delayed"`
	Active    int64  `json:"active"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Paused    int64  `json:"paused"`
}

// QueueThroughput approximates recent processing volume for one queue.
type QueueThroughput struct {
	CompletedPerMinute int64   `json:"completed_per_minute"`
	FailedPerMinute    int64   `json:"failed_per_minute"`
	AvgProcessingMs    float64 `json:"avg_processing_ms"`
}

// DeadLetterEntry holds a job that exhausted retries or failed unrecoverably.
type DeadLetterEntry struct {
	JobID        string    `json:"job_id"`
	Queue        string    `json:"queue"`
	Payload      []byte    `json:"payload"`
	FailedReason string    `json:"failed_reason"`
	Attempts     int       `json:"attempts"`
	FailedAt     time.Time `json:"failed_at"`
}
