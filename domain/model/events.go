package model

import "time"

// Publish event types, emitted in causal order per publication. No global
// ordering is guaranteed across accounts within one run; consumers key on
// PublicationID.
const (
	EventPublishStarted     = "started"
	EventPlatformQueued     = "platform_queued"
	EventPlatformPublishing = "platform_publishing"
	EventPlatformSuccess    = "platform_success"
	EventPlatformFailed     = "platform_failed"
	EventPublishCompleted   = "completed"
	EventRolledBack         = "rolled_back"
)

type PublishEvent struct {
	Type           string    `json:"type"`
	ContentID      string    `json:"content_id"`
	UserID         string    `json:"user_id"`
	AccountIDs     []string  `json:"account_ids,omitempty"`
	AccountID      string    `json:"account_id,omitempty"`
	PublicationID  string    `json:"publication_id,omitempty"`
	Platform       Platform  `json:"platform,omitempty"`
	PlatformPostID string    `json:"platform_post_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	RateLimitHit   bool      `json:"rate_limit_hit,omitempty"`
	Outcome        string    `json:"outcome,omitempty"`
	SuccessCount   int       `json:"success_count,omitempty"`
	FailureCount   int       `json:"failure_count,omitempty"`
	DurationMs     int64     `json:"duration_ms,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
