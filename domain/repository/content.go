package repository

import (
	"context"
	"time"

	"publisher/domain/model"
)

// IContent defines persistence operations for content items. Lookups return
// (nil, nil) when the row is absent; callers decide whether that is an error.
type IContent interface {
	GetByID(ctx context.Context, id string) (*model.Content, error)
	UpdateStatus(ctx context.Context, id string, status model.ContentStatus) error
	SetScheduledAt(ctx context.Context, id string, at time.Time) error
	SetPublishedAt(ctx context.Context, id string, at time.Time) error
}
