package dto

// PublishRequest triggers an immediate multi-account publish.
type PublishRequest struct {
	ContentID  string   `json:"content_id" binding:"required"`
	AccountIDs []string `json:"account_ids" binding:"required,min=1"`
}

// ScheduleRequest defers a publish to a local wall-clock time in an IANA
// timezone. Priority defaults to NORMAL.
type ScheduleRequest struct {
	ContentID   string   `json:"content_id" binding:"required"`
	AccountIDs  []string `json:"account_ids" binding:"required,min=1"`
	ScheduledAt string   `json:"scheduled_at" binding:"required"` // "2006-01-02T15:04:05" local wall clock
	Timezone    string   `json:"timezone"`
	Priority    string   `json:"priority"`
}

// BulkScheduleRequest carries up to 20 schedule items.
type BulkScheduleRequest struct {
	Items []ScheduleRequest `json:"items" binding:"required,min=1"`
}

type ScheduleResponse struct {
	ScheduledJobID string `json:"scheduled_job_id"`
	Priority       string `json:"priority"`
}
