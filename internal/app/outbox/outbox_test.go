package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/domain/shared/events"
)

type pingEvent struct {
	ID string
	At time.Time
}

func (e pingEvent) EventName() string     { return "test.ping" }
func (e pingEvent) AggregateID() string   { return e.ID }
func (e pingEvent) OccurredAt() time.Time { return e.At }

type sliceOutbox struct {
	records []EventRecord
}

func (s *sliceOutbox) Add(_ context.Context, rec EventRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *sliceOutbox) Flush(context.Context) error { return nil }

func TestRecordPendingDrainsAggregate(t *testing.T) {
	var rec events.EventRecorder
	at := time.Date(2027, 1, 1, 10, 0, 0, 0, time.UTC)
	rec.Record(pingEvent{ID: "agg-1", At: at})
	rec.Record(pingEvent{ID: "agg-1", At: at.Add(time.Minute)})

	box := &sliceOutbox{}
	enc := JSONEventEncoder{IDGenerator: func() string { return "evt" }, Source: "stayhub"}
	require.NoError(t, RecordPending(context.Background(), box, enc, &rec))

	assert.Empty(t, rec.PendingEvents())
	require.Len(t, box.records, 2)
	first := box.records[0]
	assert.Equal(t, "test.ping", first.Name)
	assert.Equal(t, "agg-1", first.Aggregate)
	assert.Equal(t, "stayhub", first.Headers["source"])
	assert.Equal(t, at, first.OccurredAt)

	var decoded pingEvent
	require.NoError(t, json.Unmarshal(first.Payload, &decoded))
	assert.Equal(t, "agg-1", decoded.ID)
}

func TestRecordDomainEventsWithoutOutbox(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{pingEvent{}}))
}
