package repository

import (
	"context"
	"time"

	"publisher/domain/model"
)

type IScheduledJob interface {
	Create(ctx context.Context, job *model.ScheduledJob) error
	GetByID(ctx context.Context, id string) (*model.ScheduledJob, error)
	// FindNonTerminalByContent returns PENDING/ACTIVE jobs for the content,
	// used for duplicate-schedule detection.
	FindNonTerminalByContent(ctx context.Context, contentID string) ([]*model.ScheduledJob, error)
	CountNonTerminalByUser(ctx context.Context, userID string) (int, error)
	SetExternalJobID(ctx context.Context, id, externalJobID string) error
	UpdateStatus(ctx context.Context, id string, status model.ScheduledJobStatus, errMsg *string) error
	// BeginAttempt marks the job ACTIVE, increments attempts and stamps
	// processedAt, returning the refreshed row.
	BeginAttempt(ctx context.Context, id string, processedAt time.Time) (*model.ScheduledJob, error)
}
