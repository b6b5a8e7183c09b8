package circuitbreaker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/cache"
	"publisher/infrastructure/logger"
)

const (
	failureThreshold = 5
	failureWindow    = 60 * time.Second
	openDuration     = 300 * time.Second
	halfOpenWindow   = 30 * time.Second
)

// CircuitBreaker isolates a struggling platform API. State is keyed by
// platform only and shared across every account of that platform; one
// account's failures can block all publishes to it. OPEN -> HALF_OPEN is
// evaluated lazily on read, so an idle breaker stays reported OPEN past its
// cooldown until the next query.
type CircuitBreaker struct {
	store cache.Store
	now   func() time.Time
}

func NewCircuitBreaker(store cache.Store) *CircuitBreaker {
	return &CircuitBreaker{store: store, now: time.Now}
}

func stateKey(p model.Platform) string    { return fmt.Sprintf("circuit:%s:state", p) }
func failuresKey(p model.Platform) string { return fmt.Sprintf("circuit:%s:failures", p) }
func openedAtKey(p model.Platform) string { return fmt.Sprintf("circuit:%s:opened_at", p) }

// getState reads the breaker state, applying the time-based OPEN -> HALF_OPEN
// transition when the cooldown has elapsed.
func (b *CircuitBreaker) getState(ctx context.Context, platform model.Platform) (model.CircuitState, error) {
	raw, ok, err := b.store.Get(ctx, stateKey(platform))
	if err != nil {
		return model.CircuitClosed, err
	}
	if !ok {
		return model.CircuitClosed, nil
	}
	state := model.CircuitState(raw)
	if state != model.CircuitOpen {
		return state, nil
	}
	openedAt, hasOpenedAt, err := b.store.GetInt(ctx, openedAtKey(platform))
	if err != nil {
		return model.CircuitOpen, err
	}
	if hasOpenedAt && b.now().Unix()-openedAt >= int64(openDuration/time.Second) {
		if err := b.store.Set(ctx, stateKey(platform), string(model.CircuitHalfOpen), halfOpenWindow); err != nil {
			return model.CircuitOpen, err
		}
		return model.CircuitHalfOpen, nil
	}
	return model.CircuitOpen, nil
}

func (b *CircuitBreaker) IsAllowed(ctx context.Context, platform model.Platform) (bool, error) {
	state, err := b.getState(ctx, platform)
	if err != nil {
		// Fail open: a broken state store must not block every publish.
		logger.GetLogger().WithField("error", err).Warn("circuit state read failed")
		return true, nil
	}
	return state != model.CircuitOpen, nil
}

func (b *CircuitBreaker) RecordSuccess(ctx context.Context, platform model.Platform) error {
	state, err := b.getState(ctx, platform)
	if err != nil {
		return err
	}
	if state == model.CircuitHalfOpen {
		// Probe succeeded; close fully and clear all counters.
		return b.store.Delete(ctx, stateKey(platform), failuresKey(platform), openedAtKey(platform))
	}
	// Success while CLOSED is a no-op; window failures age out via TTL.
	return nil
}

func (b *CircuitBreaker) RecordFailure(ctx context.Context, platform model.Platform) error {
	state, err := b.getState(ctx, platform)
	if err != nil {
		return err
	}
	if state == model.CircuitHalfOpen {
		return b.trip(ctx, platform)
	}
	count, err := b.store.IncrBy(ctx, failuresKey(platform), 1, failureWindow)
	if err != nil {
		return err
	}
	if state == model.CircuitClosed && count >= failureThreshold {
		return b.trip(ctx, platform)
	}
	return nil
}

// trip opens the breaker for the full cooldown.
func (b *CircuitBreaker) trip(ctx context.Context, platform model.Platform) error {
	now := b.now()
	if err := b.store.Set(ctx, openedAtKey(platform), strconv.FormatInt(now.Unix(), 10), 0); err != nil {
		return err
	}
	if err := b.store.Set(ctx, stateKey(platform), string(model.CircuitOpen), 0); err != nil {
		return err
	}
	logger.GetLogger().WithField("platform", platform).Warn("circuit breaker opened")
	return nil
}

func (b *CircuitBreaker) GetMetrics(ctx context.Context, platform model.Platform) (*model.CircuitMetrics, error) {
	state, err := b.getState(ctx, platform)
	if err != nil {
		return nil, err
	}
	failures, _, err := b.store.GetInt(ctx, failuresKey(platform))
	if err != nil {
		return nil, err
	}
	metrics := &model.CircuitMetrics{Platform: platform, State: state, Failures: failures}
	if openedAt, ok, err := b.store.GetInt(ctx, openedAtKey(platform)); err == nil && ok {
		t := time.Unix(openedAt, 0).UTC()
		metrics.OpenedAt = &t
	}
	return metrics, nil
}

var _ repository.ICircuitBreaker = (*CircuitBreaker)(nil)
