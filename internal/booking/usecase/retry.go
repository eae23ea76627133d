package usecase

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	apperrors "staybook/internal/errors"
)

// Backoff intervals: attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms), then 400ms.
var retryBackoffs = []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

type deadlockRetrier struct {
	maxAttempts int
	logger      *zap.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

func newDeadlockRetrier(maxAttempts int, logger *zap.Logger) deadlockRetrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return deadlockRetrier{maxAttempts: maxAttempts, logger: logger, sleep: sleepContext}
}

// run calls fn until it succeeds, fails with something other than a lock
// conflict, or maxAttempts lock conflicts have happened.
func (r deadlockRetrier) run(ctx context.Context, operation string, fn func() error) error {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !apperrors.IsLockConflict(err) {
			return err
		}

		if attempt == r.maxAttempts {
			break
		}

		r.logger.Warn("deadlock detected, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", r.maxAttempts),
			zap.Error(err))

		if err := r.sleep(ctx, withJitter(backoffFor(attempt))); err != nil {
			return err
		}
	}

	return apperrors.NewDeadlockError("max retries exceeded")
}

func backoffFor(attempt int) time.Duration {
	if attempt < len(retryBackoffs) {
		return retryBackoffs[attempt]
	}
	return retryBackoffs[len(retryBackoffs)-1]
}

// withJitter spreads d by ±20%.
func withJitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
