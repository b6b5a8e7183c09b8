package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"publisher/domain/model"
	"publisher/infrastructure/cache"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *cache.MemoryStore, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore()
	store.Now = func() time.Time { return now }
	limiter := NewRateLimiter(store)
	limiter.now = func() time.Time { return now }
	return limiter, store, &now
}

func TestCheckAndConsume_WithinBudget(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	allowed, status, err := limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 1)
	assert.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(49), status.Remaining)
	assert.Equal(t, int64(50), status.Limit)
}

func TestCheckAndConsume_ExactLimitThenBlocked(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	// Consuming exactly the limit succeeds on the boundary call.
	for i := 0; i < 50; i++ {
		allowed, _, err := limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 1)
		assert.NoError(t, err)
		assert.True(t, allowed, "call %d should be allowed", i+1)
	}
	allowed, status, err := limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 1)
	assert.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(0), status.Remaining)
}

func TestCheckAndConsume_RemainingNeverNegative(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	allowed, _, err := limiter.CheckAndConsume(ctx, model.PlatformYouTube, "acc-1", 5000)
	assert.NoError(t, err)
	assert.True(t, allowed)

	allowed, status, err := limiter.CheckAndConsume(ctx, model.PlatformYouTube, "acc-1", 100)
	assert.NoError(t, err)
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, status.Remaining, int64(0))
}

func TestCheckAndConsume_BlockedDoesNotMutate(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	_, _, _ = limiter.CheckAndConsume(ctx, model.PlatformInstagram, "acc-1", 100)
	// Denied call must not consume budget.
	allowed, _, _ := limiter.CheckAndConsume(ctx, model.PlatformInstagram, "acc-1", 50)
	assert.False(t, allowed)
	status, err := limiter.GetStatus(ctx, model.PlatformInstagram, "acc-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), status.Remaining)
}

func TestUsageAgesOutAcrossWindow(t *testing.T) {
	limiter, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, _, _ = limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 1)
	}
	allowed, _, _ := limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 1)
	assert.False(t, allowed)

	// Advance past window + grace; old buckets expire from the store and the
	// trailing-window sum no longer covers their minutes.
	*now = now.Add(3600*time.Second + 180*time.Second)
	allowed, status, err := limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 1)
	assert.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(49), status.Remaining)
}

func TestGetStatus_ReadOnly(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	first, err := limiter.GetStatus(ctx, model.PlatformTikTok, "acc-1")
	assert.NoError(t, err)
	second, err := limiter.GetStatus(ctx, model.PlatformTikTok, "acc-1")
	assert.NoError(t, err)
	assert.Equal(t, first.Remaining, second.Remaining)
	assert.Equal(t, int64(50), first.Remaining)
}

func TestGetStatus_KeysAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	_, _, _ = limiter.CheckAndConsume(ctx, model.PlatformTikTok, "acc-1", 10)
	status, err := limiter.GetStatus(ctx, model.PlatformTikTok, "acc-2")
	assert.NoError(t, err)
	assert.Equal(t, int64(50), status.Remaining)

	global, err := limiter.GetStatus(ctx, model.PlatformTikTok, "global")
	assert.NoError(t, err)
	assert.Equal(t, int64(50), global.Remaining)
}

func TestResetAtIsNextFixedWindowBoundary(t *testing.T) {
	limiter, _, now := newTestLimiter(t)
	ctx := context.Background()

	status, err := limiter.GetStatus(ctx, model.PlatformTikTok, "acc-1")
	assert.NoError(t, err)
	windowSec := int64(3600)
	expected := (now.Unix()/windowSec + 1) * windowSec
	assert.Equal(t, expected, status.ResetAt.Unix())
}

func TestAdaptiveDelayThresholds(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	status := func(remaining int64) *model.RateLimitStatus {
		return &model.RateLimitStatus{Limit: 100, Remaining: remaining}
	}

	assert.Equal(t, time.Duration(0), limiter.AdaptiveDelay(status(100)))
	assert.Equal(t, time.Duration(0), limiter.AdaptiveDelay(status(31)))  // 69%
	assert.Equal(t, 500*time.Millisecond, limiter.AdaptiveDelay(status(30))) // 70%
	assert.Equal(t, 500*time.Millisecond, limiter.AdaptiveDelay(status(16))) // 84%
	assert.Equal(t, 2*time.Second, limiter.AdaptiveDelay(status(15)))        // 85%
	assert.Equal(t, 2*time.Second, limiter.AdaptiveDelay(status(6)))         // 94%
	assert.Equal(t, 5*time.Second, limiter.AdaptiveDelay(status(5)))         // 95%
	assert.Equal(t, 5*time.Second, limiter.AdaptiveDelay(status(0)))
	assert.Equal(t, time.Duration(0), limiter.AdaptiveDelay(nil))
}

func TestUnknownPlatformRejected(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	_, _, err := limiter.CheckAndConsume(ctx, model.Platform("MYSPACE"), "acc-1", 1)
	assert.Error(t, err)
}
