package booking

import (
	"context"
	"strings"
	"time"

	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/events"
	"stayhub/internal/domain/shared/failure"
	"stayhub/internal/domain/shared/money"
)

var (
	ErrNotFound = failure.New(failure.KindNotFound, "booking not found")
	ErrConflict = failure.New(failure.KindConflict, "listing is not available for the selected dates")
	ErrStale    = failure.New(failure.KindInvalidTransition, "booking was modified concurrently, reload and retry")
)

type BookingID string

type Guests struct {
	Adults   int
	Children int
}

func (g Guests) Total() int {
	return g.Adults + g.Children
}

// Pricing is locked in when the booking is created.
type Pricing struct {
	NightlyRate money.Money
	Total       money.Money
}

type Booking struct {
	ID                 BookingID
	ListingID          listings.ListingID
	GuestID            string
	HostID             listings.HostID
	Range              daterange.DateRange
	Nights             int
	Guests             Guests
	Pricing            Pricing
	Status             Status
	SpecialRequests    string
	CancellationReason string
	CancellationPolicy CancellationPolicy
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
	events.EventRecorder
}

// ListFilter selects bookings of one party. Exactly one of GuestID and HostID is set.
type ListFilter struct {
	GuestID string
	HostID  listings.HostID
	Status  Status
	Offset  int
	Limit   int
}

// Repository persists bookings.
//
// Create must reject, with ErrConflict, a booking whose range overlaps an active booking of the
// same listing, even when a concurrent writer got there first. Save must free the nights of a
// booking that left the active set, and fails with ErrStale when Version no longer matches.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Create(ctx context.Context, booking *Booking) error
	Save(ctx context.Context, booking *Booking) error
	ActiveForListing(ctx context.Context, listingID listings.ListingID, window daterange.DateRange) ([]*Booking, error)
	List(ctx context.Context, filter ListFilter) ([]*Booking, int64, error)
}

type CreateParams struct {
	ID        BookingID
	Draft     Draft
	Status    Status
	CreatedAt time.Time
}

// NewBooking turns an admitted draft into a booking. Status defaults to confirmed.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, failure.Validation("booking id is required")
	}
	status := params.Status
	if status == "" {
		status = StatusConfirmed
	}
	if !status.Active() {
		return nil, failure.Validation("booking cannot be created as %s", status)
	}
	d := params.Draft
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:                 params.ID,
		ListingID:          d.ListingID,
		GuestID:            d.GuestID,
		HostID:             d.HostID,
		Range:              d.Range,
		Nights:             d.Range.Nights(),
		Guests:             d.Guests,
		Pricing:            d.Pricing,
		Status:             status,
		SpecialRequests:    d.SpecialRequests,
		CancellationPolicy: d.CancellationPolicy,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	b.Record(BookingCreated{
		BookingID: b.ID,
		ListingID: b.ListingID,
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Range:     b.Range,
		Nights:    b.Nights,
		Total:     b.Pricing.Total,
		Status:    b.Status,
		At:        now,
	})
	return b, nil
}

func (b *Booking) IsGuest(userID string) bool {
	return userID != "" && b.GuestID == userID
}

func (b *Booking) IsHost(userID string) bool {
	return userID != "" && string(b.HostID) == userID
}

func (b *Booking) IsParticipant(userID string) bool {
	return b.IsGuest(userID) || b.IsHost(userID)
}

// Transition moves the booking to next. Cancellation goes through the same guards as Cancel.
func (b *Booking) Transition(next Status, now time.Time) error {
	if !next.Valid() {
		return failure.Validation("unknown booking status %q", next)
	}
	if next == StatusCancelled {
		return b.Cancel("", now)
	}
	if !b.Status.CanTransitionTo(next) {
		return failure.InvalidTransition("cannot change booking status from %s to %s", b.Status, next)
	}
	switch next {
	case StatusCompleted:
		if now.Before(b.Range.CheckOut) {
			return failure.InvalidTransition("booking cannot be completed before check-out")
		}
	case StatusNoShow:
		if now.Before(b.Range.CheckIn) {
			return failure.InvalidTransition("booking cannot be marked as no-show before check-in")
		}
	}
	from := b.Status
	b.Status = next
	b.UpdatedAt = now.UTC()
	b.Record(BookingStatusChanged{BookingID: b.ID, ListingID: b.ListingID, From: from, To: next, At: b.UpdatedAt})
	return nil
}

// Cancel frees the booked nights. A no-show booking is terminal and cannot be cancelled.
func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return failure.InvalidTransition("booking is already %s and cannot be cancelled", b.Status)
	}
	if b.Range.CheckOut.Before(now) {
		return failure.InvalidTransition("cannot cancel a stay that has already ended")
	}
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > MaxTextLength {
		return failure.Validation("cancellation reason must be at most %d characters", MaxTextLength)
	}
	from := b.Status
	b.Status = StatusCancelled
	b.CancellationReason = reason
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, From: from, Reason: reason, Range: b.Range, At: b.UpdatedAt})
	return nil
}
