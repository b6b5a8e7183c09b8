package platform

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/logger"
)

const (
	maxCallAttempts = 3
	retryBase       = 100 * time.Millisecond
	retryCap        = 30 * time.Second
)

// ErrDeleteNotSupported is returned by DeletePost on every platform; rollback
// treats it as a best-effort remote failure and keeps going.
var ErrDeleteNotSupported = fmt.Errorf("platform post deletion is not supported")

// remoteResponse is what a platform API call yields on success.
type remoteResponse struct {
	PostID string
}

// remoteFunc performs the actual platform API call. Adapters carry it as a
// field so tests can inject outcomes without a network.
type remoteFunc func(ctx context.Context, account *model.Account, accessToken string, post repository.PlatformPost) (*remoteResponse, error)

// adapter wraps a platform remote call with circuit breaking, rate limiting,
// adaptive delay and bounded retries.
type adapter struct {
	platform model.Platform
	limiter  repository.IRateLimiter
	breaker  repository.ICircuitBreaker

	remoteCall remoteFunc
	sleep      func(time.Duration)
	now        func() time.Time
}

func newAdapter(p model.Platform, limiter repository.IRateLimiter, breaker repository.ICircuitBreaker, call remoteFunc) *adapter {
	return &adapter{
		platform:   p,
		limiter:    limiter,
		breaker:    breaker,
		remoteCall: call,
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

func (a *adapter) Platform() model.Platform { return a.platform }

func (a *adapter) PublishContent(ctx context.Context, account *model.Account, accessToken string, post repository.PlatformPost) model.PublishResult {
	log := logger.GetLogger().
		WithField("platform", a.platform).
		WithField("account_id", account.ID)

	allowed, err := a.breaker.IsAllowed(ctx, a.platform)
	if err == nil && !allowed {
		// Rejection while OPEN does not count as a circuit failure.
		return model.PublishResult{
			Success: false,
			Error:   fmt.Sprintf("%s circuit breaker is OPEN, calls are temporarily blocked", a.platform),
		}
	}

	limitAllowed, status, err := a.limiter.CheckAndConsume(ctx, a.platform, account.ID, 1)
	if err == nil && !limitAllowed {
		return model.PublishResult{
			Success:      false,
			Error:        fmt.Sprintf("%s rate limit exceeded for account %s", a.platform, account.ID),
			RateLimitHit: true,
		}
	}

	if delay := a.limiter.AdaptiveDelay(status); delay > 0 {
		log.WithField("delay_ms", delay.Milliseconds()).Info("applying adaptive delay before publish")
		a.sleep(delay)
	}

	var lastErr error
	for attempt := 1; attempt <= maxCallAttempts; attempt++ {
		resp, err := a.remoteCall(ctx, account, accessToken, post)
		if err == nil {
			_ = a.breaker.RecordSuccess(ctx, a.platform)
			publishedAt := a.now().UTC()
			return model.PublishResult{
				Success:        true,
				PlatformPostID: resp.PostID,
				PublishedAt:    &publishedAt,
			}
		}
		_ = a.breaker.RecordFailure(ctx, a.platform)
		lastErr = err
		log.WithField("attempt", attempt).WithField("error", err.Error()).
			Warn("platform publish attempt failed")
		if attempt < maxCallAttempts {
			a.sleep(callBackoff(attempt))
		}
	}
	return model.PublishResult{
		Success: false,
		Error:   lastErr.Error(),
	}
}

func (a *adapter) GetAnalytics(ctx context.Context, account *model.Account, accessToken, platformPostID string) (map[string]int64, error) {
	allowed, err := a.breaker.IsAllowed(ctx, a.platform)
	if err == nil && !allowed {
		return nil, fmt.Errorf("%s circuit breaker is OPEN", a.platform)
	}
	if _, _, err := a.limiter.CheckAndConsume(ctx, a.platform, account.ID, 1); err != nil {
		return nil, err
	}
	// Analytics ingestion runs on its own queue; the stub reports zeroed
	// counters until the remote integration lands.
	return map[string]int64{"views": 0, "likes": 0, "comments": 0, "shares": 0}, nil
}

func (a *adapter) ValidateAccount(ctx context.Context, account *model.Account, accessToken string) error {
	if account.Platform != a.platform {
		return fmt.Errorf("account %s belongs to %s, not %s", account.ID, account.Platform, a.platform)
	}
	if accessToken == "" {
		return fmt.Errorf("account %s has no access token", account.ID)
	}
	if account.Status != model.AccountStatusConnected {
		return fmt.Errorf("account %s is %s, not CONNECTED", account.ID, account.Status)
	}
	return nil
}

func (a *adapter) HealthCheck(ctx context.Context) error {
	allowed, err := a.breaker.IsAllowed(ctx, a.platform)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s circuit breaker is OPEN", a.platform)
	}
	return nil
}

func (a *adapter) DeletePost(ctx context.Context, account *model.Account, accessToken, platformPostID string) error {
	return fmt.Errorf("%s: %w", a.platform, ErrDeleteNotSupported)
}

// callBackoff computes min(2^attempt * 100ms + rand(100ms), 30s).
func callBackoff(attempt int) time.Duration {
	d := retryBase * (1 << attempt)
	d += time.Duration(rand.Int63n(int64(100 * time.Millisecond)))
	if d > retryCap {
		d = retryCap
	}
	return d
}

var _ repository.IPlatformAdapter = (*adapter)(nil)
