package model

import "time"

// PublishResult is the outcome of a single adapter publish call.
type PublishResult struct {
	Success        bool       `json:"success"`
	PlatformPostID string     `json:"platform_post_id,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	Error          string     `json:"error,omitempty"`
	RateLimitHit   bool       `json:"rate_limit_hit,omitempty"`
}

// RateLimitStatus reports sliding-window usage for one (platform, key) pair.
// ResetAt is the next boundary of the fixed window, not a true sliding value.
type RateLimitStatus struct {
	Platform  Platform  `json:"platform"`
	Key       string    `json:"key"`
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

type CircuitMetrics struct {
	Platform Platform     `json:"platform"`
	State    CircuitState `json:"state"`
	Failures int64        `json:"failures"`
	OpenedAt *time.Time   `json:"opened_at,omitempty"`
}
