package booking_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/app/commands"
	"stayhub/internal/app/dto"
	bookingapp "stayhub/internal/app/handlers/booking"
	"stayhub/internal/app/queries"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/clock"
	"stayhub/internal/domain/shared/failure"
	"stayhub/internal/domain/shared/money"
	"stayhub/internal/infra/storage/memory"
)

var start = time.Date(2027, time.January, 5, 15, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2027, time.January, 5+offset, 0, 0, 0, 0, time.UTC)
}

func date(offset int) string {
	return day(offset).Format(dto.DateLayout)
}

type fixture struct {
	commands commands.Bus
	queries  queries.Bus
	clock    *clock.Fixed
	listings *memory.ListingRepository
	bookings *memory.BookingRepository
	outbox   *memory.Outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clock.NewFixed(start),
		listings: memory.NewListingRepository(),
		bookings: memory.NewBookingRepository(),
		outbox:   memory.NewOutbox(),
	}
	require.NoError(t, f.listings.Save(context.Background(), &domainlistings.Listing{
		ID:                   "listing-1",
		Host:                 "host-1",
		Title:                "Loft by the river",
		City:                 "Lisbon",
		Country:              "PT",
		GuestsLimit:          4,
		MinNights:            2,
		MaxNights:            30,
		BasePrice:            money.Must(100, "USD"),
		CancellationPolicyID: "moderate",
		State:                domainlistings.ListingActive,
	}))
	f.commands, f.queries = bookingapp.NewBuses(bookingapp.Dependencies{
		UoWFactory:   memory.Factory{Listings: f.listings, Bookings: f.bookings, Outbox: f.outbox},
		Outbox:       f.outbox,
		Locker:       memory.NewLocker(2 * time.Second),
		Idempotency:  memory.NewIdempotencyStore(time.Hour, f.clock),
		Clock:        f.clock,
		DefaultLimit: 10,
		MaxLimit:     100,
	})
	return f
}

func (f *fixture) create(guest string, in, out int, key string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](context.Background(), f.commands, bookingapp.CreateBookingCommand{
		ListingID:       "listing-1",
		GuestID:         guest,
		CheckIn:         date(in),
		CheckOut:        date(out),
		Adults:          2,
		IdempotencyKeyV: key,
	})
}

func (f *fixture) changeStatus(actor, id, status string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.ChangeStatusCommand, *dto.Booking](context.Background(), f.commands, bookingapp.ChangeStatusCommand{
		BookingID: id,
		Actor:     actor,
		Status:    status,
	})
}

func (f *fixture) cancel(actor, id string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](context.Background(), f.commands, bookingapp.CancelBookingCommand{
		BookingID: id,
		Actor:     actor,
		Reason:    "plans changed",
	})
}

func TestCreateLocksPriceAndRecordsEvent(t *testing.T) {
	f := newFixture(t)

	b, err := f.create("guest-1", 10, 13, "")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", b.Status)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, int64(300), b.Pricing.TotalAmount)
	assert.Equal(t, "host-1", b.HostID)
	assert.Equal(t, "Loft by the river", b.Listing.Title)

	listing, err := f.listings.ByID(context.Background(), "listing-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), listing.TotalBookings)

	pending := f.outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "booking.created", pending[0].Name)
	assert.Equal(t, b.ID, pending[0].Aggregate)
}

func TestOverlappingRequestIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.create("guest-1", 10, 13, "")
	require.NoError(t, err)

	_, err = f.create("guest-2", 12, 14, "")
	require.ErrorIs(t, err, domainbooking.ErrConflict)
	assert.Equal(t, failure.KindConflict, failure.KindOf(err))

	_, err = f.create("guest-2", 13, 15, "")
	require.NoError(t, err, "check-out day is free for the next check-in")

	listing, err := f.listings.ByID(context.Background(), "listing-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), listing.TotalBookings, "rejected request must not touch the counter")
	assert.Len(t, f.outbox.Pending(), 2)
}

func TestConcurrentRequestsForSameNightsProduceOneBooking(t *testing.T) {
	f := newFixture(t)
	const n = 12

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.create(fmt.Sprintf("guest-%d", i), 10, 12, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domainbooking.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	listing, err := f.listings.ByID(context.Background(), "listing-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), listing.TotalBookings)
}

func TestAdmissionErrorsKeepTheirKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.create("host-1", 10, 13, "")
	assert.Equal(t, failure.KindSelfBooking, failure.KindOf(err))

	_, err = f.create("guest-1", 10, 11, "")
	assert.Equal(t, failure.KindStayLength, failure.KindOf(err))
	assert.Contains(t, err.Error(), "minimum stay is 2 nights")

	_, err = commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, f.commands, bookingapp.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-1", CheckIn: date(10), CheckOut: date(13), Adults: 4, Children: 1,
	})
	assert.Equal(t, failure.KindCapacity, failure.KindOf(err))

	_, err = commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, f.commands, bookingapp.CreateBookingCommand{
		ListingID: "missing", GuestID: "guest-1", CheckIn: date(10), CheckOut: date(13), Adults: 1,
	})
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))

	_, err = commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, f.commands, bookingapp.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-1", CheckIn: date(10), CheckOut: date(13),
	})
	assert.Equal(t, failure.KindValidation, failure.KindOf(err), "at least one adult")

	_, err = commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, f.commands, bookingapp.CreateBookingCommand{
		ListingID: "listing-1", CheckIn: date(10), CheckOut: date(13), Adults: 1,
	})
	assert.Equal(t, failure.KindUnauthenticated, failure.KindOf(err))

	assert.Empty(t, f.outbox.Pending())
}

func TestDateFormatIsCheckedAfterListingAndRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	send := func(listingID, guest, checkIn string) error {
		_, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, f.commands, bookingapp.CreateBookingCommand{
			ListingID: listingID, GuestID: guest, CheckIn: checkIn, CheckOut: date(13), Adults: 1,
		})
		return err
	}

	assert.Equal(t, failure.KindNotFound, failure.KindOf(send("missing", "guest-1", "next tuesday")))
	assert.Equal(t, failure.KindSelfBooking, failure.KindOf(send("listing-1", "host-1", "next tuesday")))

	err := send("listing-1", "guest-1", "next tuesday")
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
	assert.Contains(t, err.Error(), "check_in must be a date")

	_, err = f.create("guest-1", 10, 13, "")
	require.NoError(t, err)
	_, err = commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](ctx, f.commands, bookingapp.CreateBookingCommand{
		ListingID: "listing-1", GuestID: "guest-2", CheckIn: day(20).Format(time.RFC3339), CheckOut: date(22), Adults: 1,
	})
	require.NoError(t, err)
}

func TestIdempotentRetryReplaysFirstResult(t *testing.T) {
	f := newFixture(t)

	first, err := f.create("guest-1", 10, 13, "key-1")
	require.NoError(t, err)
	again, err := f.create("guest-1", 10, 13, "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = f.create("guest-2", 20, 23, "key-1")
	require.NoError(t, err, "keys are scoped per guest")

	page, err := queries.Ask[bookingapp.ListBookingsQuery, dto.Page[dto.Booking]](context.Background(), f.queries,
		bookingapp.ListBookingsQuery{Actor: "host-1", Role: bookingapp.RoleHost})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
}

func TestFailedAttemptIsNotReplayed(t *testing.T) {
	f := newFixture(t)

	_, err := f.create("guest-1", 10, 11, "key-1")
	require.Error(t, err)

	b, err := f.create("guest-1", 10, 12, "key-1")
	require.NoError(t, err, "a corrected retry with the same key runs again")
	assert.Equal(t, 2, b.Nights)
}

func TestCompletionWaitsForCheckOut(t *testing.T) {
	f := newFixture(t)
	b, err := f.create("guest-1", 10, 13, "")
	require.NoError(t, err)

	_, err = f.changeStatus("host-1", b.ID, "completed")
	require.Error(t, err)
	assert.Equal(t, failure.KindInvalidTransition, failure.KindOf(err))

	f.clock.Set(day(13).Add(11 * time.Hour))
	done, err := f.changeStatus("host-1", b.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)

	_, err = f.cancel("guest-1", b.ID)
	assert.Equal(t, failure.KindInvalidTransition, failure.KindOf(err), "completed is terminal")
}

func TestStatusChangesAreHostOnly(t *testing.T) {
	f := newFixture(t)
	b, err := f.create("guest-1", 10, 13, "")
	require.NoError(t, err)

	_, err = f.changeStatus("guest-1", b.ID, "completed")
	assert.Equal(t, failure.KindForbidden, failure.KindOf(err))

	_, err = f.changeStatus("host-1", b.ID, "archived")
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))

	_, err = f.changeStatus("host-1", "missing", "completed")
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

func TestCancelFreesNightsAndIsParticipantOnly(t *testing.T) {
	f := newFixture(t)
	b, err := f.create("guest-1", 10, 13, "")
	require.NoError(t, err)

	_, err = f.cancel("stranger", b.ID)
	assert.Equal(t, failure.KindForbidden, failure.KindOf(err))

	cancelled, err := f.cancel("guest-1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)
	assert.Equal(t, "plans changed", cancelled.CancellationReason)

	_, err = f.create("guest-2", 11, 13, "")
	require.NoError(t, err)

	names := []string{}
	for _, rec := range f.outbox.Pending() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"booking.created", "booking.cancelled", "booking.created"}, names)
}

func TestReadSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.create("guest-1", 10, 13, "")
	require.NoError(t, err)

	avail, err := queries.Ask[bookingapp.CheckAvailabilityQuery, dto.Availability](ctx, f.queries,
		bookingapp.CheckAvailabilityQuery{ListingID: "listing-1", CheckIn: day(12), CheckOut: day(14)})
	require.NoError(t, err)
	assert.False(t, avail.Available)

	avail, err = queries.Ask[bookingapp.CheckAvailabilityQuery, dto.Availability](ctx, f.queries,
		bookingapp.CheckAvailabilityQuery{ListingID: "listing-1", CheckIn: day(13), CheckOut: day(15)})
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Equal(t, 2, avail.Nights)

	got, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](ctx, f.queries,
		bookingapp.GetBookingQuery{BookingID: b.ID, Actor: "host-1"})
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = queries.Ask[bookingapp.GetBookingQuery, dto.Booking](ctx, f.queries,
		bookingapp.GetBookingQuery{BookingID: b.ID, Actor: "guest-9"})
	assert.Equal(t, failure.KindForbidden, failure.KindOf(err))

	mine, err := queries.Ask[bookingapp.ListBookingsQuery, dto.Page[dto.Booking]](ctx, f.queries,
		bookingapp.ListBookingsQuery{Actor: "guest-1"})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, 1, mine.CurrentPage)

	none, err := queries.Ask[bookingapp.ListBookingsQuery, dto.Page[dto.Booking]](ctx, f.queries,
		bookingapp.ListBookingsQuery{Actor: "guest-1", Status: "cancelled"})
	require.NoError(t, err)
	assert.Empty(t, none.Items)

	_, err = queries.Ask[bookingapp.ListBookingsQuery, dto.Page[dto.Booking]](ctx, f.queries,
		bookingapp.ListBookingsQuery{Actor: "guest-1", Role: "admin"})
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))
}
