package memory

import (
	"context"
	"sync"

	domainlistings "stayhub/internal/domain/listings"
)

// ListingRepository is the in-memory listing directory.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]*domainlistings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	clone := *listing
	return &clone, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *listing
	r.items[listing.ID] = &clone
	return nil
}

func (r *ListingRepository) IncrementBookings(ctx context.Context, id domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.items[id]
	if !ok {
		return domainlistings.ErrNotFound
	}
	listing.TotalBookings++
	return nil
}

func (r *ListingRepository) decrementBookings(id domainlistings.ListingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if listing, ok := r.items[id]; ok && listing.TotalBookings > 0 {
		listing.TotalBookings--
	}
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
