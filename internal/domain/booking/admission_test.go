package booking_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/failure"
	"stayhub/internal/domain/shared/money"
)

var now = time.Date(2027, time.January, 5, 15, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2027, time.January, 5+offset, 0, 0, 0, 0, time.UTC)
}

func activeListing() *listings.Listing {
	return &listings.Listing{
		ID:                   "listing-1",
		Host:                 "host-1",
		Title:                "Loft",
		GuestsLimit:          4,
		MinNights:            2,
		MaxNights:            30,
		BasePrice:            money.Must(100, "USD"),
		CancellationPolicyID: "moderate",
		State:                listings.ListingActive,
	}
}

func request(checkIn, checkOut time.Time) booking.Request {
	return booking.Request{
		ListingID: "listing-1",
		GuestID:   "guest-1",
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    booking.Guests{Adults: 2, Children: 1},
	}
}

func TestAdmitComputesNightsAndTotal(t *testing.T) {
	draft, err := booking.Admit(activeListing(), request(day(1), day(4)), now)
	require.NoError(t, err)

	assert.Equal(t, 3, draft.Nights)
	assert.Equal(t, int64(300), draft.Pricing.Total.Amount)
	assert.Equal(t, "USD", draft.Pricing.Total.Currency)
	assert.Equal(t, listings.HostID("host-1"), draft.HostID)
	assert.Equal(t, booking.PolicyModerate, draft.CancellationPolicy)
}

func TestAdmitAllowsSameDayCheckIn(t *testing.T) {
	draft, err := booking.Admit(activeListing(), request(day(0), day(2)), now)
	require.NoError(t, err)
	assert.Equal(t, day(0), draft.Range.CheckIn)
}

func TestAdmitNormalizesTimeOfDay(t *testing.T) {
	req := request(day(1).Add(14*time.Hour), day(3).Add(11*time.Hour))
	draft, err := booking.Admit(activeListing(), req, now)
	require.NoError(t, err)
	assert.Equal(t, day(1), draft.Range.CheckIn)
	assert.Equal(t, day(3), draft.Range.CheckOut)
	assert.Equal(t, 2, draft.Nights)
}

func TestAdmitRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(l *listings.Listing, r *booking.Request)
		kind    failure.Kind
		message string
	}{
		{
			name:   "missing listing id",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.ListingID = "" },
			kind:   failure.KindValidation,
		},
		{
			name:   "missing dates",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.CheckOut = time.Time{} },
			kind:   failure.KindValidation,
		},
		{
			name:   "no adults",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.Guests.Adults = 0 },
			kind:   failure.KindValidation,
		},
		{
			name:   "listing not active",
			mutate: func(l *listings.Listing, _ *booking.Request) { l.State = listings.ListingSuspended },
			kind:   failure.KindValidation,
		},
		{
			name:   "self booking",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.GuestID = "host-1" },
			kind:   failure.KindSelfBooking,
		},
		{
			name:   "check-in in the past",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.CheckIn, r.CheckOut = day(-1), day(3) },
			kind:   failure.KindValidation,
		},
		{
			name:   "check-out before check-in",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.CheckIn, r.CheckOut = day(4), day(2) },
			kind:   failure.KindValidation,
		},
		{
			name:    "below minimum stay",
			mutate:  func(_ *listings.Listing, r *booking.Request) { r.CheckIn, r.CheckOut = day(1), day(2) },
			kind:    failure.KindStayLength,
			message: "minimum stay is 2 nights",
		},
		{
			name:    "above maximum stay",
			mutate:  func(_ *listings.Listing, r *booking.Request) { r.CheckIn, r.CheckOut = day(1), day(40) },
			kind:    failure.KindStayLength,
			message: "maximum stay is 30 nights",
		},
		{
			name:   "negative children",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.Guests.Children = -1 },
			kind:   failure.KindValidation,
		},
		{
			name:   "too many guests",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.Guests = booking.Guests{Adults: 3, Children: 2} },
			kind:   failure.KindCapacity,
		},
		{
			name:   "special requests too long",
			mutate: func(_ *listings.Listing, r *booking.Request) { r.SpecialRequests = strings.Repeat("ж", 501) },
			kind:   failure.KindValidation,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := activeListing()
			r := request(day(1), day(4))
			tc.mutate(l, &r)

			_, err := booking.Admit(l, r, now)
			require.Error(t, err)
			assert.Equal(t, tc.kind, failure.KindOf(err))
			if tc.message != "" {
				assert.EqualError(t, err, tc.message)
			}
		})
	}
}

func TestAdmitAcceptsSpecialRequestsAtLimit(t *testing.T) {
	r := request(day(1), day(4))
	r.SpecialRequests = strings.Repeat("ж", booking.MaxTextLength)
	_, err := booking.Admit(activeListing(), r, now)
	assert.NoError(t, err)
}

func TestAdmitChecksSelfBookingBeforeDates(t *testing.T) {
	r := request(day(-3), day(-1))
	r.GuestID = "host-1"
	_, err := booking.Admit(activeListing(), r, now)
	assert.ErrorIs(t, err, failure.ErrSelfBooking)
}

func TestAdmitLocksPriceAtCreation(t *testing.T) {
	l := activeListing()
	draft, err := booking.Admit(l, request(day(1), day(4)), now)
	require.NoError(t, err)

	l.BasePrice = money.Must(250, "USD")
	b, err := booking.NewBooking(booking.CreateParams{ID: "b-1", Draft: draft, CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, int64(300), b.Pricing.Total.Amount)
}

func TestParseCancellationPolicy(t *testing.T) {
	assert.Equal(t, booking.PolicySuperStrict, booking.ParseCancellationPolicy("Super-Strict"))
	assert.Equal(t, booking.PolicyStrict, booking.ParseCancellationPolicy(" strict "))
	assert.Equal(t, booking.PolicyFlexible, booking.ParseCancellationPolicy(""))
	assert.Equal(t, booking.PolicyFlexible, booking.ParseCancellationPolicy("unknown"))
}

func TestAdmitParsesTextDatesAfterSelfBookingCheck(t *testing.T) {
	req := booking.Request{
		ListingID:    "listing-1",
		GuestID:      "guest-1",
		CheckInText:  "2027-01-06",
		CheckOutText: "2027-01-08T09:00:00Z",
		Guests:       booking.Guests{Adults: 1},
	}
	draft, err := booking.Admit(activeListing(), req, now)
	require.NoError(t, err)
	assert.Equal(t, day(1), draft.Range.CheckIn)
	assert.Equal(t, day(3), draft.Range.CheckOut)

	req.CheckInText = "next tuesday"
	_, err = booking.Admit(activeListing(), req, now)
	assert.Equal(t, failure.KindValidation, failure.KindOf(err))

	req.GuestID = "host-1"
	_, err = booking.Admit(activeListing(), req, now)
	assert.Equal(t, failure.KindSelfBooking, failure.KindOf(err))

	_, err = booking.Admit(nil, req, now)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}
