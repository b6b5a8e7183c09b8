package repository

import (
	"context"
	"time"

	"publisher/domain/model"
)

type IPublication interface {
	// CreateBatch inserts all records in a single transaction; either every
	// publication exists afterwards or none do.
	CreateBatch(ctx context.Context, pubs []*model.Publication) error
	GetByID(ctx context.Context, id string) (*model.Publication, error)
	ListByContent(ctx context.Context, contentID string) ([]*model.Publication, error)
	UpdateStatus(ctx context.Context, id string, status model.PublicationStatus, errMsg *string) error
	MarkPublished(ctx context.Context, id, platformPostID string, publishedAt time.Time) error
	// ForceFailPending fails every QUEUED/PUBLISHING publication for the
	// content; used when a scheduled job is dead-lettered.
	ForceFailPending(ctx context.Context, contentID string, errMsg string) error
}
