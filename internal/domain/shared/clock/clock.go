package clock

import (
	"sync"
	"time"
)

// Clock is the time source for every date comparison in the booking core.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a settable clock for tests and replays.
type Fixed struct {
	mu sync.RWMutex
	at time.Time
}

func NewFixed(at time.Time) *Fixed {
	return &Fixed{at: at.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.at
}

func (f *Fixed) Set(at time.Time) {
	f.mu.Lock()
	f.at = at.UTC()
	f.mu.Unlock()
}

func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.at = f.at.Add(d)
	f.mu.Unlock()
}

// OrSystem returns c, or the wall clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System{}
	}
	return c
}
