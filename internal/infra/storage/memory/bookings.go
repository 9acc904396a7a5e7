package memory

import (
	"context"
	"sort"
	"sync"

	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
)

// BookingRepository keeps bookings in memory. Create checks and inserts under one lock,
// which gives the same write-time conflict guarantee as the unique night index in Mongo.
type BookingRepository struct {
	mu        sync.RWMutex
	items     map[domainbooking.BookingID]*domainbooking.Booking
	byListing map[domainlistings.ListingID][]domainbooking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items:     make(map[domainbooking.BookingID]*domainbooking.Booking),
		byListing: make(map[domainlistings.ListingID][]domainbooking.BookingID),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[b.ID]; exists {
		return domainbooking.ErrConflict
	}
	if b.Status.Active() {
		for _, id := range r.byListing[b.ListingID] {
			existing := r.items[id]
			if existing.Status.Active() && existing.Range.Overlaps(b.Range) {
				return domainbooking.ErrConflict
			}
		}
	}
	b.Version = 1
	r.items[b.ID] = cloneBooking(b)
	r.byListing[b.ListingID] = append(r.byListing[b.ListingID], b.ID)
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	_, err := r.save(b)
	return err
}

// save replaces the stored booking and returns the version it replaced.
func (r *BookingRepository) save(b *domainbooking.Booking) (*domainbooking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[b.ID]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	if current.Version != b.Version {
		return nil, domainbooking.ErrStale
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return current, nil
}

func (r *BookingRepository) remove(id domainbooking.BookingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return
	}
	delete(r.items, id)
	ids := r.byListing[b.ListingID]
	for i, other := range ids {
		if other == id {
			r.byListing[b.ListingID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

func (r *BookingRepository) restore(prev *domainbooking.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[prev.ID] = prev
}

func (r *BookingRepository) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.DateRange) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, id := range r.byListing[listingID] {
		b := r.items[id]
		if b.Status.Active() && b.Range.Overlaps(window) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, int64, error) {
	r.mu.RLock()
	matches := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if filter.GuestID != "" && b.GuestID != filter.GuestID {
			continue
		}
		if filter.HostID != "" && b.HostID != filter.HostID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		matches = append(matches, b)
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	total := int64(len(matches))
	start := filter.Offset
	if start > len(matches) {
		start = len(matches)
	}
	end := len(matches)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	page := make([]*domainbooking.Booking, 0, end-start)
	for _, b := range matches[start:end] {
		page = append(page, cloneBooking(b))
	}
	return page, total, nil
}

// cloneBooking copies a booking without its pending events.
func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.ClearEvents()
	return &clone
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
