package uow

import (
	"context"

	domainbooking "stayhub/internal/domain/booking"
	domainlistings "stayhub/internal/domain/listings"
)

// UnitOfWork scopes repositories to one transaction.
type UnitOfWork interface {
	Listings() domainlistings.Directory
	Bookings() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry driver state, such as a Mongo session,
// which repositories pick up from the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
