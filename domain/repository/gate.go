package repository

import (
	"context"
	"time"

	"publisher/domain/model"
)

// IRateLimiter enforces a sliding-window quota per (platform, key), where key
// is an account id or RateLimitGlobalKey. It never returns an error for a
// missing bucket; absence counts as zero usage.
type IRateLimiter interface {
	CheckAndConsume(ctx context.Context, platform model.Platform, key string, cost int64) (allowed bool, status *model.RateLimitStatus, err error)
	GetStatus(ctx context.Context, platform model.Platform, key string) (*model.RateLimitStatus, error)
	AdaptiveDelay(status *model.RateLimitStatus) time.Duration
}

const RateLimitGlobalKey = "global"

// ICircuitBreaker is the per-platform failure isolation state machine. State
// is shared across all accounts of a platform; OPEN -> HALF_OPEN is evaluated
// lazily on read.
type ICircuitBreaker interface {
	IsAllowed(ctx context.Context, platform model.Platform) (bool, error)
	RecordSuccess(ctx context.Context, platform model.Platform) error
	RecordFailure(ctx context.Context, platform model.Platform) error
	GetMetrics(ctx context.Context, platform model.Platform) (*model.CircuitMetrics, error)
}

// ITokenResolver yields a non-expired access token for an account, refreshing
// when near expiry. Failures surface as adapter-call failures upstream.
type ITokenResolver interface {
	GetValidAccessToken(ctx context.Context, accountID string) (string, error)
}
