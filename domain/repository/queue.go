package repository

import (
	"context"
	"time"

	"publisher/domain/model"
)

// EnqueueOptions control placement of a delayed job.
type EnqueueOptions struct {
	Delay    time.Duration
	Priority int    // lower dequeues first among due jobs
	JobID    string // stable external id; re-enqueueing the same id is a no-op
}

// IDelayQueue is the delayed-job backend consumed by the scheduler. Retry,
// backoff and dead-lettering happen inside the queue according to the
// registered worker's policy.
type IDelayQueue interface {
	Enqueue(ctx context.Context, name string, payload []byte, opts EnqueueOptions) (externalID string, err error)
	Remove(ctx context.Context, externalID string) error
	GetJob(ctx context.Context, externalID string) (*model.QueueJobSnapshot, error)
}

// IQueueInspector exposes read-only depth and throughput aggregation for the
// metrics surface; it never mutates queue state.
type IQueueInspector interface {
	QueueNames() []string
	Counts(queue string) (*model.QueueCounts, error)
	Throughput(queue string) (*model.QueueThroughput, error)
	DeadLetters(limit int) []*model.DeadLetterEntry
}
