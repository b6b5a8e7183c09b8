package model

import "time"

type ContentStatus string

const (
	ContentStatusDraft      ContentStatus = "DRAFT"
	ContentStatusScheduled  ContentStatus = "SCHEDULED"
	ContentStatusPublishing ContentStatus = "PUBLISHING"
	ContentStatusPublished  ContentStatus = "PUBLISHED"
	ContentStatusFailed     ContentStatus = "FAILED"
)

// Content is a user-owned media item. Status transitions are driven by the
// scheduler and the publishing usecase only, never directly by clients.
type Content struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	FileURL     string        `json:"file_url"`
	MimeType    string        `json:"mime_type"`
	Duration    int           `json:"duration"` // seconds
	Status      ContentStatus `json:"status"`
	ScheduledAt *time.Time    `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time    `json:"published_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
