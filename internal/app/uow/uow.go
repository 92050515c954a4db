package uow

import (
	"context"

	"github.com/google/uuid"

	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
)

// UnitOfWork coordinates the booking store inside one transaction boundary.
type UnitOfWork interface {
	Bookings() domainbooking.Store
	Listings() domainlistings.Catalog

	// LockListing serializes writers of one listing calendar until Commit or
	// Rollback. Contention that cannot be waited out is reported as
	// domainbooking.ErrCalendarBusy.
	LockListing(ctx context.Context, listingID uuid.UUID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that need to carry driver state
// (such as a database session) through the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

// Bind stores the unit in ctx, letting it inject its own session first.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

// Release frees a lock taken by a ListingLocker. Calling it twice is harmless.
type Release func()

// ListingLocker serializes writers of a listing calendar across units.
type ListingLocker interface {
	Acquire(ctx context.Context, listingID uuid.UUID) (Release, error)
}
