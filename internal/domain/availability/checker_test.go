package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/domain/availability"
	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
)

type staticSource struct {
	bookings []*booking.Booking
	err      error
	calls    int
}

func (s *staticSource) ActiveForListing(_ context.Context, _ listings.ListingID, _ daterange.DateRange) ([]*booking.Booking, error) {
	s.calls++
	return s.bookings, s.err
}

func jan(d int) time.Time {
	return time.Date(2027, time.January, d, 0, 0, 0, 0, time.UTC)
}

func stay(in, out int) daterange.DateRange {
	return daterange.DateRange{CheckIn: jan(in), CheckOut: jan(out)}
}

func existing(id string, in, out int, status booking.Status) *booking.Booking {
	return &booking.Booking{ID: booking.BookingID(id), ListingID: "listing-1", Range: stay(in, out), Status: status}
}

func TestFindConflict(t *testing.T) {
	source := &staticSource{bookings: []*booking.Booking{
		existing("a", 10, 15, booking.StatusConfirmed),
		existing("b", 20, 22, booking.StatusCancelled),
		{ID: "c", ListingID: "listing-2", Range: stay(1, 30), Status: booking.StatusConfirmed},
	}}
	checker := availability.NewChecker(source)
	ctx := context.Background()

	conflict, err := checker.FindConflict(ctx, "listing-1", stay(12, 18), "")
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, booking.BookingID("a"), conflict.ID)

	ok, err := checker.IsAvailable(ctx, "listing-1", stay(15, 18), "")
	require.NoError(t, err)
	assert.True(t, ok, "touching ranges do not overlap")

	ok, err = checker.IsAvailable(ctx, "listing-1", stay(20, 22), "")
	require.NoError(t, err)
	assert.True(t, ok, "cancelled bookings free their dates")

	ok, err = checker.IsAvailable(ctx, "listing-1", stay(12, 18), "a")
	require.NoError(t, err)
	assert.True(t, ok, "excluded booking is ignored")
}

func TestIsAvailableIsRepeatable(t *testing.T) {
	source := &staticSource{bookings: []*booking.Booking{existing("a", 10, 15, booking.StatusPending)}}
	checker := availability.NewChecker(source)

	first, err := checker.IsAvailable(context.Background(), "listing-1", stay(14, 16), "")
	require.NoError(t, err)
	second, err := checker.IsAvailable(context.Background(), "listing-1", stay(14, 16), "")
	require.NoError(t, err)
	assert.False(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, source.calls)
}

func TestFindConflictPropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	checker := availability.NewChecker(&staticSource{err: boom})
	_, err := checker.FindConflict(context.Background(), "listing-1", stay(1, 2), "")
	assert.ErrorIs(t, err, boom)
}
