package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publisher/domain/model"
	"publisher/domain/repository"
)

type stubLimiter struct {
	allowed bool
	status  *model.RateLimitStatus
	delay   time.Duration
	calls   int
}

func (s *stubLimiter) CheckAndConsume(ctx context.Context, p model.Platform, key string, cost int64) (bool, *model.RateLimitStatus, error) {
	s.calls++
	return s.allowed, s.status, nil
}

func (s *stubLimiter) GetStatus(ctx context.Context, p model.Platform, key string) (*model.RateLimitStatus, error) {
	return s.status, nil
}

func (s *stubLimiter) AdaptiveDelay(status *model.RateLimitStatus) time.Duration { return s.delay }

type stubBreaker struct {
	allowed   bool
	successes int
	failures  int
}

func (s *stubBreaker) IsAllowed(ctx context.Context, p model.Platform) (bool, error) {
	return s.allowed, nil
}

func (s *stubBreaker) RecordSuccess(ctx context.Context, p model.Platform) error {
	s.successes++
	return nil
}

func (s *stubBreaker) RecordFailure(ctx context.Context, p model.Platform) error {
	s.failures++
	return nil
}

func (s *stubBreaker) GetMetrics(ctx context.Context, p model.Platform) (*model.CircuitMetrics, error) {
	return &model.CircuitMetrics{Platform: p, State: model.CircuitClosed}, nil
}

func testAccount() *model.Account {
	return &model.Account{
		ID:       "acc-1",
		UserID:   "user-1",
		Platform: model.PlatformTikTok,
		Status:   model.AccountStatusConnected,
	}
}

func testPost() repository.PlatformPost {
	return repository.PlatformPost{Title: "clip", FileURL: "https://cdn.example.com/v.mp4", MimeType: "video/mp4"}
}

func newTestAdapter(limiter *stubLimiter, breaker *stubBreaker, call remoteFunc) (*adapter, *[]time.Duration) {
	a := newAdapter(model.PlatformTikTok, limiter, breaker, call)
	slept := &[]time.Duration{}
	a.sleep = func(d time.Duration) { *slept = append(*slept, d) }
	return a, slept
}

func TestPublishContentCircuitOpenFailsFast(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: false}
	remoteCalls := 0
	a, _ := newTestAdapter(limiter, breaker, func(ctx context.Context, account *model.Account, token string, post repository.PlatformPost) (*remoteResponse, error) {
		remoteCalls++
		return &remoteResponse{PostID: "x"}, nil
	})

	res := a.PublishContent(context.Background(), testAccount(), "tok", testPost())

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "circuit breaker is OPEN")
	assert.False(t, res.RateLimitHit)
	assert.Equal(t, 0, remoteCalls)
	assert.Equal(t, 0, breaker.failures, "open-circuit rejection must not count as a failure")
	assert.Equal(t, 0, limiter.calls, "no quota consumed when the circuit blocks the call")
}

func TestPublishContentRateLimitExceeded(t *testing.T) {
	limiter := &stubLimiter{allowed: false, status: &model.RateLimitStatus{Platform: model.PlatformTikTok, Limit: 50, Remaining: 0}}
	breaker := &stubBreaker{allowed: true}
	remoteCalls := 0
	a, _ := newTestAdapter(limiter, breaker, func(ctx context.Context, account *model.Account, token string, post repository.PlatformPost) (*remoteResponse, error) {
		remoteCalls++
		return &remoteResponse{PostID: "x"}, nil
	})

	res := a.PublishContent(context.Background(), testAccount(), "tok", testPost())

	assert.False(t, res.Success)
	assert.True(t, res.RateLimitHit)
	assert.Contains(t, res.Error, "rate limit exceeded")
	assert.Equal(t, 0, remoteCalls)
	assert.Equal(t, 0, breaker.failures)
}

func TestPublishContentSuccessRecordsCircuitSuccess(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: true}
	a, slept := newTestAdapter(limiter, breaker, func(ctx context.Context, account *model.Account, token string, post repository.PlatformPost) (*remoteResponse, error) {
		return &remoteResponse{PostID: "tt_123"}, nil
	})

	res := a.PublishContent(context.Background(), testAccount(), "tok", testPost())

	require.True(t, res.Success)
	assert.Equal(t, "tt_123", res.PlatformPostID)
	require.NotNil(t, res.PublishedAt)
	assert.Equal(t, 1, breaker.successes)
	assert.Equal(t, 0, breaker.failures)
	assert.Empty(t, *slept, "no adaptive delay and no retry backoff on a clean first attempt")
}

func TestPublishContentAppliesAdaptiveDelay(t *testing.T) {
	limiter := &stubLimiter{allowed: true, delay: 2 * time.Second}
	breaker := &stubBreaker{allowed: true}
	a, slept := newTestAdapter(limiter, breaker, func(ctx context.Context, account *model.Account, token string, post repository.PlatformPost) (*remoteResponse, error) {
		return &remoteResponse{PostID: "tt_1"}, nil
	})

	res := a.PublishContent(context.Background(), testAccount(), "tok", testPost())

	require.True(t, res.Success)
	require.Len(t, *slept, 1)
	assert.Equal(t, 2*time.Second, (*slept)[0])
}

func TestPublishContentRetriesTransientFailures(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: true}
	attempts := 0
	a, slept := newTestAdapter(limiter, breaker, func(ctx context.Context, account *model.Account, token string, post repository.PlatformPost) (*remoteResponse, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("503 service unavailable")
		}
		return &remoteResponse{PostID: "tt_ok"}, nil
	})

	res := a.PublishContent(context.Background(), testAccount(), "tok", testPost())

	require.True(t, res.Success)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, breaker.failures)
	assert.Equal(t, 1, breaker.successes)
	assert.Len(t, *slept, 2, "backoff between attempts, none after success")
}

func TestPublishContentExhaustsRetries(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: true}
	attempts := 0
	a, _ := newTestAdapter(limiter, breaker, func(ctx context.Context, account *model.Account, token string, post repository.PlatformPost) (*remoteResponse, error) {
		attempts++
		return nil, errors.New("connection reset by peer")
	})

	res := a.PublishContent(context.Background(), testAccount(), "tok", testPost())

	assert.False(t, res.Success)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, breaker.failures)
	assert.Equal(t, "connection reset by peer", res.Error)
	assert.Empty(t, res.PlatformPostID)
}

func TestCallBackoffBounds(t *testing.T) {
	for attempt := 1; attempt <= 10; attempt++ {
		d := callBackoff(attempt)
		min := retryBase * (1 << attempt)
		if min > retryCap {
			min = retryCap
		}
		assert.GreaterOrEqual(t, d, min)
		assert.LessOrEqual(t, d, retryCap)
	}
}

func TestDeletePostNotSupported(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: true}
	for _, ad := range []repository.IPlatformAdapter{
		NewTikTokAdapter(limiter, breaker),
		NewInstagramAdapter(limiter, breaker),
		NewYouTubeAdapter(limiter, breaker),
	} {
		err := ad.DeletePost(context.Background(), testAccount(), "tok", "post-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDeleteNotSupported)
	}
}

func TestValidateAccount(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: true}
	a := NewTikTokAdapter(limiter, breaker)

	acc := testAccount()
	assert.NoError(t, a.ValidateAccount(context.Background(), acc, "tok"))

	wrongPlatform := testAccount()
	wrongPlatform.Platform = model.PlatformYouTube
	assert.Error(t, a.ValidateAccount(context.Background(), wrongPlatform, "tok"))

	assert.Error(t, a.ValidateAccount(context.Background(), acc, ""))

	revoked := testAccount()
	revoked.Status = model.AccountStatusRevoked
	assert.Error(t, a.ValidateAccount(context.Background(), revoked, "tok"))
}

func TestHealthCheckReflectsCircuit(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	breaker := &stubBreaker{allowed: true}
	a := NewInstagramAdapter(limiter, breaker)
	assert.NoError(t, a.HealthCheck(context.Background()))

	breaker.allowed = false
	assert.Error(t, a.HealthCheck(context.Background()))
}
