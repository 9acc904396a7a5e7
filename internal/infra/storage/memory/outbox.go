package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayhub/internal/app/outbox"
	infraoutbox "stayhub/internal/infra/outbox"
)

type stagedRecord struct {
	record      appoutbox.EventRecord
	attempts    int
	nextAttempt time.Time
	claimed     bool
	sent        bool
}

// Outbox keeps event records in process. Records added inside a unit of work become visible
// to the relay only when that unit commits.
type Outbox struct {
	mu      sync.Mutex
	records []*stagedRecord
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	rec := stagedRecord{record: record}
	if unit, ok := unitFromContext(ctx); ok && unit.box == o {
		unit.stage(rec)
		return nil
	}
	o.enqueue([]stagedRecord{rec})
	return nil
}

// Flush is a no-op, records are already queued by Commit.
func (o *Outbox) Flush(context.Context) error {
	return nil
}

func (o *Outbox) enqueue(recs []stagedRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range recs {
		rec := recs[i]
		rec.nextAttempt = o.now().UTC()
		o.records = append(o.records, &rec)
	}
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now().UTC()
	for _, rec := range o.records {
		if rec.sent || rec.claimed || rec.nextAttempt.After(now) {
			continue
		}
		rec.claimed = true
		return &infraoutbox.Message{Record: rec.record, Attempts: rec.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec := o.find(id); rec != nil {
		rec.sent = true
		rec.claimed = false
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec := o.find(id); rec != nil {
		rec.claimed = false
		rec.attempts++
		rec.nextAttempt = next
	}
	return nil
}

// Pending lists records not yet delivered, oldest first.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.records))
	for _, rec := range o.records {
		if !rec.sent {
			out = append(out, rec.record)
		}
	}
	return out
}

func (o *Outbox) find(id string) *stagedRecord {
	for _, rec := range o.records {
		if rec.record.ID == id {
			return rec
		}
	}
	return nil
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
