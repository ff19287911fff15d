package worker

import (
	"context"
	"time"
)

// retryBaseDelay is the linear backoff unit: attempt n sleeps n*base.
const retryBaseDelay = 1 * time.Second

// Sleeper lets tests observe backoff without waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry invokes op up to maxAttempts times, sleeping attempt*1000ms between
// failures (linear backoff). The last failure propagates unchanged.
func Retry[T any](ctx context.Context, maxAttempts int, sleep Sleeper, op func(ctx context.Context) (T, error)) (T, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if sleep == nil {
		sleep = defaultSleep
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		if serr := sleep(ctx, time.Duration(attempt)*retryBaseDelay); serr != nil {
			return zero, lastErr
		}
	}
	return zero, lastErr
}
