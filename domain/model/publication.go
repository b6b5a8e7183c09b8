package model

import "time"

type PublicationStatus string

const (
	PublicationStatusQueued     PublicationStatus = "QUEUED"
	PublicationStatusPublishing PublicationStatus = "PUBLISHING"
	PublicationStatusPublished  PublicationStatus = "PUBLISHED"
	PublicationStatusFailed     PublicationStatus = "FAILED"
)

// Publication records one (content, account) publish attempt. Status is
// monotonic within a run (QUEUED -> PUBLISHING -> PUBLISHED|FAILED); only an
// explicit rollback forces PUBLISHED -> FAILED afterwards.
type Publication struct {
	ID             string            `json:"id"`
	ContentID      string            `json:"content_id"`
	AccountID      string            `json:"account_id"`
	Platform       Platform          `json:"platform"`
	Status         PublicationStatus `json:"status"`
	PlatformPostID *string           `json:"platform_post_id,omitempty"`
	PublishedAt    *time.Time        `json:"published_at,omitempty"`
	ErrorMessage   *string           `json:"error_message,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
