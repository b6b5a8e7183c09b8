package queue

import (
	"context"
	"errors"
	"time"

	"publisher/domain/model"
)

// Job is one unit of delayed work tracked by a Queue.
type Job struct {
	ID          string
	Name        string
	Payload     []byte
	Priority    int // lower runs first among due jobs
	RunAt       time.Time
	Attempts    int
	MaxAttempts int
	State       model.QueueJobState
	Progress    int
	LastError   string

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	seq        uint64
	heapIndex  int // position in the delay or ready heap, -1 when in neither
}

// Handler executes a job. Returning nil completes the job; returning an error
// triggers retry with backoff, unless the error is marked unrecoverable, in
// which case the job is dead-lettered immediately.
type Handler func(jc *JobContext) error

// JobContext is handed to handlers; it carries the execution context and
// exposes incremental progress reporting.
type JobContext struct {
	ctx context.Context
	job *Job
	q   *Queue
}

func (jc *JobContext) Context() context.Context { return jc.ctx }
func (jc *JobContext) JobID() string            { return jc.job.ID }
func (jc *JobContext) Payload() []byte          { return jc.job.Payload }
func (jc *JobContext) Attempt() int             { return jc.job.Attempts }

func (jc *JobContext) SetProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	jc.q.mu.Lock()
	jc.job.Progress = p
	jc.q.mu.Unlock()
}

// UnrecoverableError classifies a failure that must bypass retries and go
// straight to the dead-letter queue (e.g. the referenced content was deleted).
type UnrecoverableError struct {
	Err error
}

func (e *UnrecoverableError) Error() string { return e.Err.Error() }
func (e *UnrecoverableError) Unwrap() error { return e.Err }

func Unrecoverable(err error) error { return &UnrecoverableError{Err: err} }

func IsUnrecoverable(err error) bool {
	var ue *UnrecoverableError
	return errors.As(err, &ue)
}
