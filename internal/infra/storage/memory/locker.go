package memory

import (
	"context"
	"sync"
	"time"

	"stayhub/internal/app/policies"
)

// Locker serializes holders of the same key inside one process.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewLocker(wait time.Duration) *Locker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &Locker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *Locker) Acquire(ctx context.Context, key string) (policies.Release, error) {
	slot := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, policies.ErrLockTimeout
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-slot })
		return nil
	}, nil
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	return slot
}

var _ policies.Locker = (*Locker)(nil)
