package outbox

import (
	"context"
	"time"

	appoutbox "stayhub/internal/app/outbox"
)

// Message is an outbox record claimed by one relay worker.
type Message struct {
	Record   appoutbox.EventRecord
	Attempts int
}

// Queue is the relay side of an outbox. Claim returns nil when nothing is due.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Message, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
