package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/app/middleware"
	appoutbox "stayhub/internal/app/outbox"
	"stayhub/internal/app/policies"
	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/clock"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/failure"
)

func day(d int) time.Time {
	return time.Date(2027, time.March, d, 0, 0, 0, 0, time.UTC)
}

func newBooking(t *testing.T, id string, in, out int) *domainbooking.Booking {
	t.Helper()
	stay, err := daterange.New(day(in), day(out))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID: domainbooking.BookingID(id),
		Draft: domainbooking.Draft{
			ListingID: "listing-1",
			GuestID:   "guest-" + id,
			HostID:    "host-1",
			Range:     stay,
			Nights:    stay.Nights(),
			Guests:    domainbooking.Guests{Adults: 1},
		},
		CreatedAt: day(1).Add(time.Duration(in) * time.Minute),
	})
	require.NoError(t, err)
	return b
}

func TestCreateRejectsOverlapButAllowsBackToBack(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBooking(t, "a", 10, 13)))
	err := repo.Create(ctx, newBooking(t, "b", 12, 14))
	require.ErrorIs(t, err, domainbooking.ErrConflict)
	require.NoError(t, repo.Create(ctx, newBooking(t, "c", 13, 15)))
}

func TestConcurrentCreatesAdmitExactlyOne(t *testing.T) {
	repo := NewBookingRepository()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		b := newBooking(t, fmt.Sprintf("r-%d", i), 10, 12)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(context.Background(), b); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, domainbooking.ErrConflict)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestCancelledBookingFreesNights(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newBooking(t, "a", 10, 13)))

	stored, err := repo.ByID(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, stored.Cancel("plans changed", day(2)))
	require.NoError(t, repo.Save(ctx, stored))

	require.NoError(t, repo.Create(ctx, newBooking(t, "b", 11, 12)))
	active, err := repo.ActiveForListing(ctx, "listing-1", daterange.DateRange{CheckIn: day(1), CheckOut: day(30)})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, domainbooking.BookingID("b"), active[0].ID)
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newBooking(t, "a", 10, 13)))

	first, err := repo.ByID(ctx, "a")
	require.NoError(t, err)
	second, err := repo.ByID(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, first.Cancel("", day(2)))
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, second.Cancel("", day(2)))
	require.ErrorIs(t, repo.Save(ctx, second), domainbooking.ErrStale)
}

func TestReadsReturnCopies(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newBooking(t, "a", 10, 13)))

	got, err := repo.ByID(ctx, "a")
	require.NoError(t, err)
	got.Status = domainbooking.StatusCompleted
	require.Empty(t, got.PendingEvents())

	again, err := repo.ByID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, domainbooking.StatusConfirmed, again.Status)
}

func TestListPagesNewestFirst(t *testing.T) {
	repo := NewBookingRepository()
	ctx := context.Background()
	for i, in := range []int{2, 5, 8, 11, 14} {
		b := newBooking(t, fmt.Sprintf("b%d", i), in, in+2)
		b.HostID = "host-1"
		require.NoError(t, repo.Create(ctx, b))
	}

	page, total, err := repo.List(ctx, domainbooking.ListFilter{HostID: "host-1", Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, domainbooking.BookingID("b2"), page[0].ID)
	assert.Equal(t, domainbooking.BookingID("b1"), page[1].ID)

	page, total, err = repo.List(ctx, domainbooking.ListFilter{GuestID: "guest-b4"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, page, 1)

	page, _, err = repo.List(ctx, domainbooking.ListFilter{HostID: "host-1", Offset: 10, Limit: 2})
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestUnitReleasesOutboxRecordsOnCommitOnly(t *testing.T) {
	box := NewOutbox()
	factory := Factory{Listings: NewListingRepository(), Bookings: NewBookingRepository(), Outbox: box}
	ctx := context.Background()

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	execCtx := uow.Attach(ctx, unit)
	require.NoError(t, box.Add(execCtx, appoutbox.EventRecord{ID: "e-1", Name: "booking.created"}))
	require.Empty(t, box.Pending())
	require.NoError(t, unit.Commit(execCtx))
	require.Len(t, box.Pending(), 1)

	unit, err = factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	execCtx = uow.Attach(ctx, unit)
	require.NoError(t, box.Add(execCtx, appoutbox.EventRecord{ID: "e-2", Name: "booking.created"}))
	require.NoError(t, unit.Rollback(execCtx))
	require.Len(t, box.Pending(), 1)
}

func TestRollbackRevertsUnitWrites(t *testing.T) {
	listings := NewListingRepository()
	bookings := NewBookingRepository()
	factory := Factory{Listings: listings, Bookings: bookings, Outbox: NewOutbox()}
	ctx := context.Background()
	require.NoError(t, listings.Save(ctx, &domainlistings.Listing{ID: "listing-1", Host: "host-1", State: domainlistings.ListingActive}))

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Create(ctx, newBooking(t, "kept", 3, 5)))
	require.NoError(t, unit.Listings().IncrementBookings(ctx, "listing-1"))
	require.NoError(t, unit.Commit(ctx))

	unit, err = factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Bookings().Create(ctx, newBooking(t, "dropped", 10, 13)))
	require.NoError(t, unit.Listings().IncrementBookings(ctx, "listing-1"))
	kept, err := unit.Bookings().ByID(ctx, "kept")
	require.NoError(t, err)
	status, version := kept.Status, kept.Version
	require.NoError(t, kept.Cancel("changed plans", day(1)))
	require.NoError(t, unit.Bookings().Save(ctx, kept))
	require.NoError(t, unit.Rollback(ctx))

	_, err = bookings.ByID(ctx, "dropped")
	require.ErrorIs(t, err, domainbooking.ErrNotFound)
	require.NoError(t, bookings.Create(ctx, newBooking(t, "again", 10, 13)))

	kept, err = bookings.ByID(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, status, kept.Status)
	assert.Equal(t, version, kept.Version)

	listing, err := listings.ByID(ctx, "listing-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), listing.TotalBookings)
}

func TestLockerSerializesAndTimesOut(t *testing.T) {
	locker := NewLocker(30 * time.Millisecond)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "listing:1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "listing:1")
	require.ErrorIs(t, err, policies.ErrLockTimeout)
	require.Equal(t, failure.KindBusy, failure.KindOf(err))

	other, err := locker.Acquire(ctx, "listing:2")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx))
	again, err := locker.Acquire(ctx, "listing:1")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	clk := clock.NewFixed(day(1))
	store := NewIdempotencyStore(time.Hour, clk)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "g:k", Command: "booking.create", OccurredAt: clk.Now()}))
	_, found, err := store.Get(ctx, "g:k")
	require.NoError(t, err)
	require.True(t, found)

	clk.Advance(2 * time.Hour)
	_, found, err = store.Get(ctx, "g:k")
	require.NoError(t, err)
	require.False(t, found)
}
