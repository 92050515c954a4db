package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainbooking "homestay/internal/domain/booking"
)

// ErrDuplicatePublicID is returned when a booking public id is reused.
var ErrDuplicatePublicID = errors.New("memory: booking public id already exists")

// BookingStore keeps bookings in memory, keyed by the internal sequence.
type BookingStore struct {
	mu       sync.RWMutex
	seq      int64
	items    map[int64]*domainbooking.Booking
	byPublic map[uuid.UUID]int64
	now      func() time.Time
}

func NewBookingStore() *BookingStore {
	return &BookingStore{
		items:    make(map[int64]*domainbooking.Booking),
		byPublic: make(map[uuid.UUID]int64),
		now:      time.Now,
	}
}

func (s *BookingStore) ExistsOverlapping(ctx context.Context, listingID uuid.UUID, start, end time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlapping(listingID, start, end), nil
}

func (s *BookingStore) FindByListing(ctx context.Context, listingID uuid.UUID) ([]*domainbooking.Booking, error) {
	return s.collect(func(b *domainbooking.Booking) bool { return b.ListingID == listingID }), nil
}

func (s *BookingStore) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domainbooking.Booking, error) {
	return s.collect(func(b *domainbooking.Booking) bool { return b.TenantID == tenantID }), nil
}

func (s *BookingStore) FindByListingIn(ctx context.Context, listingIDs []uuid.UUID) ([]*domainbooking.Booking, error) {
	set := idSet(listingIDs)
	return s.collect(func(b *domainbooking.Booking) bool {
		_, ok := set[b.ListingID]
		return ok
	}), nil
}

func (s *BookingStore) FindOverlappingAny(ctx context.Context, listingIDs []uuid.UUID, start, end time.Time) ([]*domainbooking.Booking, error) {
	set := idSet(listingIDs)
	return s.collect(func(b *domainbooking.Booking) bool {
		if _, ok := set[b.ListingID]; !ok {
			return false
		}
		return domainbooking.Overlaps(b.Range.Start, b.Range.End, start, end)
	}), nil
}

func (s *BookingStore) DeleteByTenantAndPublicID(ctx context.Context, tenantID, bookingID uuid.UUID) (int64, error) {
	removed := s.deleteMatching(func(b *domainbooking.Booking) bool {
		return b.TenantID == tenantID && b.PublicID == bookingID
	})
	return int64(len(removed)), nil
}

func (s *BookingStore) DeleteByPublicIDAndListing(ctx context.Context, bookingID, listingID uuid.UUID) (int64, error) {
	removed := s.deleteMatching(func(b *domainbooking.Booking) bool {
		return b.PublicID == bookingID && b.ListingID == listingID
	})
	return int64(len(removed)), nil
}

// Insert rejects a reused public id and, like an exclusion constraint,
// an interval overlapping a stored booking of the same listing.
func (s *BookingStore) Insert(ctx context.Context, b *domainbooking.Booking) (*domainbooking.Booking, error) {
	if b == nil {
		return nil, domainbooking.ErrPublicIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPublic[b.PublicID]; ok {
		return nil, ErrDuplicatePublicID
	}
	if s.overlapping(b.ListingID, b.Range.Start, b.Range.End) {
		return nil, domainbooking.ErrAlreadyBooked
	}
	s.seq++
	now := s.now().UTC()
	b.ID = s.seq
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	stored := b.Clone()
	s.items[stored.ID] = stored
	s.byPublic[stored.PublicID] = stored.ID
	return stored.Clone(), nil
}

// Len reports the number of stored bookings.
func (s *BookingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *BookingStore) overlapping(listingID uuid.UUID, start, end time.Time) bool {
	for _, b := range s.items {
		if b.ListingID == listingID && domainbooking.Overlaps(b.Range.Start, b.Range.End, start, end) {
			return true
		}
	}
	return false
}

func (s *BookingStore) collect(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range s.items {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].Range.Start.Before(out[j].Range.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *BookingStore) deleteMatching(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*domainbooking.Booking
	for id, b := range s.items {
		if match(b) {
			removed = append(removed, b)
			delete(s.items, id)
			delete(s.byPublic, b.PublicID)
		}
	}
	return removed
}

func (s *BookingStore) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.items[id]; ok {
		delete(s.byPublic, b.PublicID)
		delete(s.items, id)
	}
}

func (s *BookingStore) restore(items []*domainbooking.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range items {
		s.items[b.ID] = b
		s.byPublic[b.PublicID] = b.ID
	}
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var _ domainbooking.Store = (*BookingStore)(nil)
