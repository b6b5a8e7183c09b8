package ratelimit

import (
	"context"
	"fmt"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/cache"
	"publisher/infrastructure/logger"
)

// limitConfig represents 50% of the platform's real published limit.
type limitConfig struct {
	limit  int64
	window time.Duration
}

var platformLimits = map[model.Platform]limitConfig{
	model.PlatformTikTok:    {limit: 50, window: 3600 * time.Second},
	model.PlatformInstagram: {limit: 100, window: 3600 * time.Second},
	model.PlatformYouTube:   {limit: 5000, window: 86400 * time.Second}, // quota units
}

const bucketGrace = 120 * time.Second

// RateLimiter tracks sliding-window usage per (platform, key) as 1-minute
// counters in the backing store. It never fails a caller: store errors are
// logged and treated as zero usage.
type RateLimiter struct {
	store cache.Store
	now   func() time.Time
}

func NewRateLimiter(store cache.Store) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

func bucketKey(platform model.Platform, key string, minute int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", platform, key, minute)
}

func violationKey(platform model.Platform, key string) string {
	return fmt.Sprintf("ratelimit:violation:%s:%s", platform, key)
}

// usage sums every 1-minute bucket covering the trailing window, rounded up
// to whole minutes.
func (r *RateLimiter) usage(ctx context.Context, platform model.Platform, key string, cfg limitConfig) int64 {
	nowMin := r.now().Unix() / 60
	minutes := int64((cfg.window + time.Minute - 1) / time.Minute)
	var total int64
	for m := nowMin - minutes + 1; m <= nowMin; m++ {
		n, ok, err := r.store.GetInt(ctx, bucketKey(platform, key, m))
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("rate limit bucket read failed")
			continue
		}
		if ok {
			total += n
		}
	}
	return total
}

func (r *RateLimiter) status(platform model.Platform, key string, cfg limitConfig, used int64) *model.RateLimitStatus {
	remaining := cfg.limit - used
	if remaining < 0 {
		remaining = 0
	}
	windowSec := int64(cfg.window / time.Second)
	resetAt := (r.now().Unix()/windowSec + 1) * windowSec
	return &model.RateLimitStatus{
		Platform:  platform,
		Key:       key,
		Limit:     cfg.limit,
		Remaining: remaining,
		ResetAt:   time.Unix(resetAt, 0).UTC(),
	}
}

func (r *RateLimiter) CheckAndConsume(ctx context.Context, platform model.Platform, key string, cost int64) (bool, *model.RateLimitStatus, error) {
	cfg, ok := platformLimits[platform]
	if !ok {
		return false, nil, fmt.Errorf("unknown platform: %s", platform)
	}
	if cost <= 0 {
		cost = 1
	}
	used := r.usage(ctx, platform, key, cfg)
	if used+cost > cfg.limit {
		if err := r.store.Set(ctx, violationKey(platform, key), r.now().UTC().Format(time.RFC3339), cfg.window); err != nil {
			logger.GetLogger().WithField("error", err).Warn("rate limit violation marker write failed")
		}
		return false, r.status(platform, key, cfg, used), nil
	}
	nowMin := r.now().Unix() / 60
	if _, err := r.store.IncrBy(ctx, bucketKey(platform, key, nowMin), cost, cfg.window+bucketGrace); err != nil {
		// Fail open: an unreadable store must not block publishing.
		logger.GetLogger().WithField("error", err).Warn("rate limit bucket increment failed")
		return true, r.status(platform, key, cfg, used), nil
	}
	return true, r.status(platform, key, cfg, used+cost), nil
}

func (r *RateLimiter) GetStatus(ctx context.Context, platform model.Platform, key string) (*model.RateLimitStatus, error) {
	cfg, ok := platformLimits[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
	return r.status(platform, key, cfg, r.usage(ctx, platform, key, cfg)), nil
}

// AdaptiveDelay smooths bursts before the hard limit kicks in. Callers sleep
// this long before issuing the gated call.
func (r *RateLimiter) AdaptiveDelay(status *model.RateLimitStatus) time.Duration {
	if status == nil || status.Limit == 0 {
		return 0
	}
	utilization := 1 - float64(status.Remaining)/float64(status.Limit)
	switch {
	case utilization < 0.70:
		return 0
	case utilization < 0.85:
		return 500 * time.Millisecond
	case utilization < 0.95:
		return 2 * time.Second
	default:
		return 5 * time.Second
	}
}

var _ repository.IRateLimiter = (*RateLimiter)(nil)
