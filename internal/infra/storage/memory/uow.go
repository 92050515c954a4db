package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"homestay/internal/app/uow"
	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
)

// Factory wires in-memory stores into a unit-of-work boundary.
type Factory struct {
	BookingStore *BookingStore
	Catalog      domainlistings.Catalog
	Locks        uow.ListingLocker
}

// ErrFactoryMisconfigured indicates missing stores.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// ErrUnitClosed is returned when a unit is used after Commit or Rollback.
var ErrUnitClosed = errors.New("memory: unit of work already closed")

// Begin opens a unit. Writes are applied immediately and undone on Rollback;
// readers of other units may observe them before Commit.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.BookingStore == nil || f.Catalog == nil {
		return nil, ErrFactoryMisconfigured
	}
	locks := f.Locks
	if locks == nil {
		locks = sharedLocks
	}
	u := &Unit{
		store:    f.BookingStore,
		catalog:  f.Catalog,
		locks:    locks,
		readOnly: opts.ReadOnly,
		held:     make(map[uuid.UUID]uow.Release),
	}
	u.bookings = &unitBookings{BookingStore: f.BookingStore, unit: u}
	return u, nil
}

var sharedLocks = NewListingLocks(5 * time.Second)

// Unit is a uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	store    *BookingStore
	bookings *unitBookings
	catalog  domainlistings.Catalog
	locks    uow.ListingLocker
	readOnly bool

	mu     sync.Mutex
	undo   []func()
	held   map[uuid.UUID]uow.Release
	closed bool
}

func (u *Unit) Bookings() domainbooking.Store {
	return u.bookings
}

func (u *Unit) Listings() domainlistings.Catalog {
	return u.catalog
}

func (u *Unit) LockListing(ctx context.Context, listingID uuid.UUID) error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrUnitClosed
	}
	if _, ok := u.held[listingID]; ok {
		u.mu.Unlock()
		return nil
	}
	u.mu.Unlock()

	release, err := u.locks.Acquire(ctx, listingID)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		release()
		return ErrUnitClosed
	}
	u.held[listingID] = release
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.finish(false)
}

func (u *Unit) Rollback(ctx context.Context) error {
	return u.finish(true)
}

func (u *Unit) finish(revert bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		if revert {
			return nil
		}
		return ErrUnitClosed
	}
	u.closed = true
	if revert {
		for i := len(u.undo) - 1; i >= 0; i-- {
			u.undo[i]()
		}
	}
	u.undo = nil
	for id, release := range u.held {
		release()
		delete(u.held, id)
	}
	return nil
}

func (u *Unit) journal(fn func()) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return ErrUnitClosed
	}
	u.undo = append(u.undo, fn)
	return nil
}

// unitBookings records an undo step for every write made through the unit.
type unitBookings struct {
	*BookingStore
	unit *Unit
}

func (b *unitBookings) Insert(ctx context.Context, booking *domainbooking.Booking) (*domainbooking.Booking, error) {
	if b.unit.readOnly {
		return nil, uow.ErrReadOnly
	}
	saved, err := b.BookingStore.Insert(ctx, booking)
	if err != nil {
		return nil, err
	}
	id := saved.ID
	if err := b.unit.journal(func() { b.BookingStore.remove(id) }); err != nil {
		b.BookingStore.remove(id)
		return nil, err
	}
	return saved, nil
}

func (b *unitBookings) DeleteByTenantAndPublicID(ctx context.Context, tenantID, bookingID uuid.UUID) (int64, error) {
	return b.delete(func(item *domainbooking.Booking) bool {
		return item.TenantID == tenantID && item.PublicID == bookingID
	})
}

func (b *unitBookings) DeleteByPublicIDAndListing(ctx context.Context, bookingID, listingID uuid.UUID) (int64, error) {
	return b.delete(func(item *domainbooking.Booking) bool {
		return item.PublicID == bookingID && item.ListingID == listingID
	})
}

func (b *unitBookings) delete(match func(*domainbooking.Booking) bool) (int64, error) {
	if b.unit.readOnly {
		return 0, uow.ErrReadOnly
	}
	removed := b.BookingStore.deleteMatching(match)
	if len(removed) == 0 {
		return 0, nil
	}
	if err := b.unit.journal(func() { b.BookingStore.restore(removed) }); err != nil {
		b.BookingStore.restore(removed)
		return 0, err
	}
	return int64(len(removed)), nil
}

var (
	_ uow.UoWFactory      = Factory{}
	_ domainbooking.Store = (*unitBookings)(nil)
)
