package usecase

import (
	"context"
	"time"
)

// sleep is a settle wait that gives up when ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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

// pollUntil evaluates cond until it holds or timeout elapses. cond always
// runs at least once. The bool reports whether cond held.
func pollUntil(ctx context.Context, interval, timeout time.Duration, cond func(ctx context.Context) (bool, error)) (bool, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)

	for {
		ok, err := cond(ctx)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		if err := sleep(ctx, min(interval, remaining)); err != nil {
			return false, err
		}
	}
}
