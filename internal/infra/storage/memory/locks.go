package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"homestay/internal/app/uow"
	domainbooking "homestay/internal/domain/booking"
)

// ListingLocks is a process local keyed lock, one slot per listing.
type ListingLocks struct {
	// Wait bounds how long Acquire blocks; zero waits until ctx is done.
	Wait time.Duration

	mu    sync.Mutex
	slots map[uuid.UUID]chan struct{}
}

func NewListingLocks(wait time.Duration) *ListingLocks {
	return &ListingLocks{Wait: wait, slots: make(map[uuid.UUID]chan struct{})}
}

func (l *ListingLocks) Acquire(ctx context.Context, listingID uuid.UUID) (uow.Release, error) {
	slot := l.slot(listingID)
	var timeout <-chan time.Time
	if l.Wait > 0 {
		timer := time.NewTimer(l.Wait)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, domainbooking.ErrCalendarBusy
	}
}

func (l *ListingLocks) slot(listingID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[uuid.UUID]chan struct{})
	}
	ch, ok := l.slots[listingID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[listingID] = ch
	}
	return ch
}

var _ uow.ListingLocker = (*ListingLocks)(nil)
