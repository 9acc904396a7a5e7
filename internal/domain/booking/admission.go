package booking

import (
	"strings"
	"time"

	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/failure"
	"stayhub/internal/domain/shared/money"
)

// MaxTextLength bounds special requests and cancellation reasons, counted in characters.
const MaxTextLength = 500

// Request is what a guest asks for. Dates are normalized to calendar days by Admit.
// Clients send dates as text in CheckInText and CheckOutText; a non-empty text wins over the
// time field and is parsed only after the listing and the requester were checked.
type Request struct {
	ListingID       listings.ListingID
	GuestID         string
	CheckIn         time.Time
	CheckOut        time.Time
	CheckInText     string
	CheckOutText    string
	Guests          Guests
	SpecialRequests string
}

// Validate checks field presence before anything is looked up.
func (r Request) Validate() error {
	if strings.TrimSpace(string(r.ListingID)) == "" {
		return failure.Validation("listing id is required")
	}
	if strings.TrimSpace(r.GuestID) == "" {
		return failure.Validation("guest id is required")
	}
	if !dateGiven(r.CheckIn, r.CheckInText) || !dateGiven(r.CheckOut, r.CheckOutText) {
		return failure.Validation("check-in and check-out dates are required")
	}
	if r.Guests.Adults < 1 {
		return failure.Validation("at least one adult guest is required")
	}
	return nil
}

// Draft is an admitted request with its derived fields, ready to become a Booking.
type Draft struct {
	ListingID          listings.ListingID
	GuestID            string
	HostID             listings.HostID
	Range              daterange.DateRange
	Nights             int
	Guests             Guests
	Pricing            Pricing
	SpecialRequests    string
	CancellationPolicy CancellationPolicy
}

// Admit runs the listing rules against a request in a fixed order and stops at the first failure.
// Availability is checked separately against stored bookings.
func Admit(listing *listings.Listing, req Request, now time.Time) (Draft, error) {
	if err := req.Validate(); err != nil {
		return Draft{}, err
	}
	if listing == nil {
		return Draft{}, failure.NotFound("listing")
	}
	if !listing.Bookable() {
		return Draft{}, failure.Validation("listing is %s and cannot be booked", listing.State)
	}
	if string(listing.Host) == req.GuestID {
		return Draft{}, failure.New(failure.KindSelfBooking, "hosts cannot book their own listing")
	}

	checkIn, err := requestDay("check_in", req.CheckIn, req.CheckInText)
	if err != nil {
		return Draft{}, err
	}
	checkOut, err := requestDay("check_out", req.CheckOut, req.CheckOutText)
	if err != nil {
		return Draft{}, err
	}
	if checkIn.Before(daterange.Day(now)) {
		return Draft{}, failure.Validation("check-in date cannot be in the past")
	}
	stay, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return Draft{}, failure.Wrap(failure.KindValidation, err, "check-out must be after check-in")
	}

	nights := stay.Nights()
	if nights < listing.MinNights {
		return Draft{}, failure.New(failure.KindStayLength, "minimum stay is %d nights", listing.MinNights)
	}
	if listing.MaxNights > 0 && nights > listing.MaxNights {
		return Draft{}, failure.New(failure.KindStayLength, "maximum stay is %d nights", listing.MaxNights)
	}

	if req.Guests.Children < 0 {
		return Draft{}, failure.Validation("children count cannot be negative")
	}
	if req.Guests.Total() > listing.GuestsLimit {
		return Draft{}, failure.New(failure.KindCapacity, "listing accommodates at most %d guests", listing.GuestsLimit)
	}

	special := strings.TrimSpace(req.SpecialRequests)
	if len([]rune(special)) > MaxTextLength {
		return Draft{}, failure.Validation("special requests must be at most %d characters", MaxTextLength)
	}

	rate := listing.BasePrice
	if rate.Currency == "" {
		rate.Currency = money.DefaultCurrency
	}
	return Draft{
		ListingID:          listing.ID,
		GuestID:            req.GuestID,
		HostID:             listing.Host,
		Range:              stay,
		Nights:             nights,
		Guests:             req.Guests,
		Pricing:            Pricing{NightlyRate: rate, Total: rate.Multiply(int64(nights))},
		SpecialRequests:    special,
		CancellationPolicy: ParseCancellationPolicy(listing.CancellationPolicyID),
	}, nil
}

func dateGiven(t time.Time, text string) bool {
	return !t.IsZero() || strings.TrimSpace(text) != ""
}

func requestDay(field string, t time.Time, text string) (time.Time, error) {
	if strings.TrimSpace(text) == "" {
		return daterange.Day(t), nil
	}
	d, err := daterange.ParseDay(text)
	if err != nil {
		return time.Time{}, failure.Wrap(failure.KindValidation, err, field+" must be a date in YYYY-MM-DD or RFC3339 format")
	}
	return d, nil
}
