package availability

import (
	"context"
	"fmt"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
)

// Source returns the active bookings of a listing whose stay may intersect window.
// Implementations may return extra bookings; the checker applies the overlap predicate itself.
type Source interface {
	ActiveForListing(ctx context.Context, listingID listings.ListingID, window daterange.DateRange) ([]*booking.Booking, error)
}

// Checker answers whether a listing is free for a date range. It never writes.
type Checker struct {
	Source Source
}

func NewChecker(source Source) *Checker {
	return &Checker{Source: source}
}

// FindConflict returns the first active booking overlapping stay, skipping exclude, or nil.
func (c *Checker) FindConflict(ctx context.Context, listingID listings.ListingID, stay daterange.DateRange, exclude booking.BookingID) (*booking.Booking, error) {
	if c == nil || c.Source == nil {
		return nil, fmt.Errorf("availability: source not configured")
	}
	candidates, err := c.Source.ActiveForListing(ctx, listingID, stay)
	if err != nil {
		return nil, fmt.Errorf("availability: load bookings: %w", err)
	}
	for _, existing := range candidates {
		if existing == nil || existing.ListingID != listingID {
			continue
		}
		if exclude != "" && existing.ID == exclude {
			continue
		}
		if !existing.Status.Active() {
			continue
		}
		if existing.Range.Overlaps(stay) {
			return existing, nil
		}
	}
	return nil, nil
}

func (c *Checker) IsAvailable(ctx context.Context, listingID listings.ListingID, stay daterange.DateRange, exclude booking.BookingID) (bool, error) {
	conflict, err := c.FindConflict(ctx, listingID, stay, exclude)
	if err != nil {
		return false, err
	}
	return conflict == nil, nil
}
