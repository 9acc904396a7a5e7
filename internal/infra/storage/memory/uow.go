package memory

import (
	"context"
	"errors"
	"sync"

	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
	"stayhub/internal/domain/shared/daterange"
)

// Factory hands out units over shared in-memory repositories.
type Factory struct {
	Listings *ListingRepository
	Bookings *BookingRepository
	Outbox   *Outbox
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a unit. Writes apply to the shared repositories at once and are undone on
// Rollback; outbox records are held back until Commit. Concurrent readers may see writes
// of a unit that later rolls back.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Listings == nil || f.Bookings == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{listings: f.Listings, bookings: f.Bookings, box: f.Outbox, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	listings *ListingRepository
	bookings *BookingRepository
	box      *Outbox
	readOnly bool

	mu     sync.Mutex
	staged []stagedRecord
	undo   []func()
}

type unitKey struct{}

func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, unitKey{}, u)
}

func (u *Unit) Listings() domainlistings.Directory {
	return unitListings{repo: u.listings, unit: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return unitBookings{repo: u.bookings, unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	staged := u.staged
	u.staged = nil
	u.undo = nil
	u.mu.Unlock()
	if u.box != nil && len(staged) > 0 {
		u.box.enqueue(staged)
	}
	return nil
}

// Rollback reverts the unit's writes, newest first, and drops its outbox records.
func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	undo := u.undo
	u.staged = nil
	u.undo = nil
	u.mu.Unlock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	return nil
}

func (u *Unit) stage(rec stagedRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.staged = append(u.staged, rec)
}

func (u *Unit) onRollback(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = append(u.undo, fn)
}

func unitFromContext(ctx context.Context) (*Unit, bool) {
	u, ok := ctx.Value(unitKey{}).(*Unit)
	return u, ok
}

type unitBookings struct {
	repo *BookingRepository
	unit *Unit
}

func (b unitBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return b.repo.ByID(ctx, id)
}

func (b unitBookings) Create(ctx context.Context, booking *domainbooking.Booking) error {
	if err := b.repo.Create(ctx, booking); err != nil {
		return err
	}
	id := booking.ID
	b.unit.onRollback(func() { b.repo.remove(id) })
	return nil
}

func (b unitBookings) Save(ctx context.Context, booking *domainbooking.Booking) error {
	prev, err := b.repo.save(booking)
	if err != nil {
		return err
	}
	b.unit.onRollback(func() { b.repo.restore(prev) })
	return nil
}

func (b unitBookings) ActiveForListing(ctx context.Context, listingID domainlistings.ListingID, window daterange.DateRange) ([]*domainbooking.Booking, error) {
	return b.repo.ActiveForListing(ctx, listingID, window)
}

func (b unitBookings) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, int64, error) {
	return b.repo.List(ctx, filter)
}

type unitListings struct {
	repo *ListingRepository
	unit *Unit
}

func (l unitListings) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	return l.repo.ByID(ctx, id)
}

func (l unitListings) IncrementBookings(ctx context.Context, id domainlistings.ListingID) error {
	if err := l.repo.IncrementBookings(ctx, id); err != nil {
		return err
	}
	l.unit.onRollback(func() { l.repo.decrementBookings(id) })
	return nil
}

var (
	_ uow.UoWFactory           = Factory{}
	_ uow.ContextInjector      = (*Unit)(nil)
	_ domainbooking.Repository = unitBookings{}
	_ domainlistings.Directory = unitListings{}
)
