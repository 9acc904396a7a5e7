package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"stayhub/internal/app/uow"
	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
)

// Factory runs each unit of work in its own session. Writing units open a snapshot
// transaction; read-only units use the session without one.
type Factory struct {
	DB       *mongo.Database
	Listings *ListingRepository
	Bookings *BookingRepository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory misconfigured")

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.Listings == nil || f.Bookings == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	unit := &Unit{session: session, listings: f.Listings, bookings: f.Bookings, inTxn: !opts.ReadOnly}
	if unit.inTxn {
		txnOpts := options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority())
		if err := session.StartTransaction(txnOpts); err != nil {
			session.EndSession(ctx)
			return nil, err
		}
	}
	return unit, nil
}

type Unit struct {
	session  mongo.Session
	listings *ListingRepository
	bookings *BookingRepository
	inTxn    bool
}

func (u *Unit) Listings() domainlistings.Directory {
	return u.listings
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

// Commit maps a transaction aborted by a concurrent writer to a booking conflict.
func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return commitError(u.session.CommitTransaction(ctx))
}

// commitError keeps storage outages untagged so they surface as internal errors.
func commitError(err error) error {
	if err == nil {
		return nil
	}
	if isWriteConflict(err) {
		return domainbooking.ErrConflict
	}
	return fmt.Errorf("commit transaction: %w", err)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext makes repository calls on the returned context join this session.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory      = Factory{}
	_ uow.ContextInjector = (*Unit)(nil)
)
