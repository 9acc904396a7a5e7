package policies

import (
	"context"
	"time"

	"stayhub/internal/domain/shared/failure"
)

var ErrLockTimeout = failure.New(failure.KindBusy, "listing is being booked by another request, retry shortly")

// Release gives a held lock back. It is safe to call after the lease expired.
type Release func(ctx context.Context) error

// Locker serializes writers sharing a key, across processes when the backend is shared.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Poll calls try until it reports the lock as taken, wait elapses or ctx ends.
func Poll(ctx context.Context, wait, interval time.Duration, try func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 25 * time.Millisecond
	}
	deadline := time.Now().Add(wait)
	for {
		ok, err := try(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockTimeout
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
