package repository

import (
	"context"

	"publisher/domain/model"
)

// PlatformPost is the payload handed to an adapter: content already optimized
// for that platform by the content optimizer.
type PlatformPost struct {
	Title       string
	Description string
	Hashtags    []string
	FileURL     string
	MimeType    string
	Duration    int
}

// IPlatformAdapter is the capability set implemented once per platform. The
// publish path wraps circuit breaking, rate limiting, adaptive delay and
// bounded retries around the remote call.
type IPlatformAdapter interface {
	Platform() model.Platform
	PublishContent(ctx context.Context, account *model.Account, accessToken string, post PlatformPost) model.PublishResult
	GetAnalytics(ctx context.Context, account *model.Account, accessToken, platformPostID string) (map[string]int64, error)
	ValidateAccount(ctx context.Context, account *model.Account, accessToken string) error
	HealthCheck(ctx context.Context) error
	// DeletePost is not implemented by any current adapter; rollback treats
	// its error as a best-effort remote failure and proceeds with internal
	// bookkeeping.
	DeletePost(ctx context.Context, account *model.Account, accessToken, platformPostID string) error
}

// AdapterRegistry resolves the adapter for a platform, fixed at startup.
type AdapterRegistry map[model.Platform]IPlatformAdapter

func (r AdapterRegistry) For(p model.Platform) (IPlatformAdapter, bool) {
	a, ok := r[p]
	return a, ok
}
