package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homestay/internal/app/uow"
	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
)

func newFactory(t *testing.T, wait time.Duration) (Factory, *domainlistings.Listing) {
	t.Helper()
	listing := &domainlistings.Listing{PublicID: uuid.New(), LandlordID: uuid.New(), NightlyPrice: 80}
	catalog, err := NewListingCatalog(listing)
	require.NoError(t, err)
	return Factory{BookingStore: NewBookingStore(), Catalog: catalog, Locks: NewListingLocks(wait)}, listing
}

func TestUnitRollbackUndoesWrites(t *testing.T) {
	f, listing := newFactory(t, time.Second)
	ctx := context.Background()
	tenant := uuid.New()

	kept, err := f.BookingStore.Insert(ctx, newBooking(listing.PublicID, tenant, 10, 12))
	require.NoError(t, err)

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	_, err = unit.Bookings().Insert(ctx, newBooking(listing.PublicID, tenant, 1, 3))
	require.NoError(t, err)
	n, err := unit.Bookings().DeleteByTenantAndPublicID(ctx, tenant, kept.PublicID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.NoError(t, unit.Rollback(ctx))

	all, err := f.BookingStore.FindByListing(ctx, listing.PublicID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, kept.PublicID, all[0].PublicID)
}

func TestUnitCommitKeepsWrites(t *testing.T) {
	f, listing := newFactory(t, time.Second)
	ctx := context.Background()

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	_, err = unit.Bookings().Insert(ctx, newBooking(listing.PublicID, uuid.New(), 1, 3))
	require.NoError(t, err)
	require.NoError(t, unit.Commit(ctx))
	require.NoError(t, unit.Rollback(ctx), "rollback after commit is a no-op")

	assert.Equal(t, 1, f.BookingStore.Len())
	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)
}

func TestUnitReadOnlyRejectsWrites(t *testing.T) {
	f, listing := newFactory(t, time.Second)
	ctx := context.Background()

	unit, err := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	_, err = unit.Bookings().Insert(ctx, newBooking(listing.PublicID, uuid.New(), 1, 3))
	assert.ErrorIs(t, err, uow.ErrReadOnly)
}

func TestUnitLockListingSerializesUnits(t *testing.T) {
	f, listing := newFactory(t, 0)
	ctx := context.Background()

	first, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, first.LockListing(ctx, listing.PublicID))
	require.NoError(t, first.LockListing(ctx, listing.PublicID), "re-entrant within a unit")

	var acquired atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		second, err := f.Begin(ctx, uow.TxOptions{})
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, second.LockListing(ctx, listing.PublicID))
		acquired.Store(true)
		assert.NoError(t, second.Commit(ctx))
	}()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, acquired.Load())
	require.NoError(t, first.Commit(ctx))
	wg.Wait()
	assert.True(t, acquired.Load())
}

func TestUnitLockListingTimesOut(t *testing.T) {
	f, listing := newFactory(t, 20*time.Millisecond)
	ctx := context.Background()

	holder, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, holder.LockListing(ctx, listing.PublicID))
	defer holder.Rollback(ctx)

	waiter, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	defer waiter.Rollback(ctx)
	assert.ErrorIs(t, waiter.LockListing(ctx, listing.PublicID), domainbooking.ErrCalendarBusy)
}

func TestListingCatalogOwnership(t *testing.T) {
	landlord := uuid.New()
	listing := &domainlistings.Listing{PublicID: uuid.New(), LandlordID: landlord, NightlyPrice: 50, Title: "B"}
	other := &domainlistings.Listing{PublicID: uuid.New(), LandlordID: landlord, NightlyPrice: 50, Title: "A"}
	catalog, err := NewListingCatalog(listing, other)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = catalog.ByPublicIDAndLandlord(ctx, listing.PublicID, uuid.New())
	assert.ErrorIs(t, err, domainlistings.ErrNotFound)

	got, err := catalog.ByPublicIDAndLandlord(ctx, listing.PublicID, landlord)
	require.NoError(t, err)
	assert.Equal(t, listing.PublicID, got.PublicID)

	owned, err := catalog.ByLandlord(ctx, landlord)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "A", owned[0].Title)

	_, err = NewListingCatalog(&domainlistings.Listing{PublicID: uuid.New()})
	assert.ErrorIs(t, err, domainlistings.ErrLandlordRequired)
}
