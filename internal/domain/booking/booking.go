package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"homestay/internal/domain/shared/daterange"
	"homestay/internal/domain/shared/events"
)

var (
	ErrPublicIDRequired = errors.New("booking: public id is required")
	ErrListingRequired  = errors.New("booking: listing public id is required")
	ErrTenantRequired   = errors.New("booking: tenant public id is required")
	ErrNightsRequired   = errors.New("booking: at least one night is required")
	ErrNegativePrice    = errors.New("booking: nightly price must be non-negative")
	ErrPriceOverflow    = errors.New("booking: total price out of range")
	// ErrAlreadyBooked is raised by a store whose constraints reject an overlapping insert.
	ErrAlreadyBooked = errors.New("booking: listing already booked for the interval")
	// ErrCalendarBusy is raised when another transaction holds the listing calendar.
	ErrCalendarBusy = errors.New("booking: listing calendar locked by a concurrent request")
)

// Reasons surfaced to callers in failed results.
const (
	ReasonListingNotFound = "Landlord public id not found"
	ReasonAlreadyBooked   = "One booking already exists"
	ReasonBookingNotFound = "Booking not found"
	ReasonInvalidDates    = "Invalid booking dates"
	ReasonPriceOutOfRange = "Booking price out of range"
	// ReasonCalendarBusy is retryable: the listing was locked, no overlap was found.
	ReasonCalendarBusy = "Listing calendar busy, retry later"
)

// DefaultTravelers is fixed: bookings are single traveler.
const DefaultTravelers = 1

type Booking struct {
	ID                int64
	PublicID          uuid.UUID
	ListingID         uuid.UUID
	TenantID          uuid.UUID
	Range             daterange.DateRange
	NumberOfTravelers int
	TotalPrice        int
	CreatedAt         time.Time
	UpdatedAt         time.Time
	events.Recorder
}

// Store persists bookings. Listing and tenant references are public ids.
type Store interface {
	ExistsOverlapping(ctx context.Context, listingID uuid.UUID, start, end time.Time) (bool, error)
	FindByListing(ctx context.Context, listingID uuid.UUID) ([]*Booking, error)
	FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Booking, error)
	FindByListingIn(ctx context.Context, listingIDs []uuid.UUID) ([]*Booking, error)
	FindOverlappingAny(ctx context.Context, listingIDs []uuid.UUID, start, end time.Time) ([]*Booking, error)
	DeleteByTenantAndPublicID(ctx context.Context, tenantID, bookingID uuid.UUID) (int64, error)
	DeleteByPublicIDAndListing(ctx context.Context, bookingID, listingID uuid.UUID) (int64, error)
	// Insert assigns the internal id and audit timestamps.
	Insert(ctx context.Context, b *Booking) (*Booking, error)
}

type CreateParams struct {
	PublicID     uuid.UUID
	ListingID    uuid.UUID
	TenantID     uuid.UUID
	Range        daterange.DateRange
	NightlyPrice int
	Now          time.Time
}

// New is the only constructor of a booking; price is fixed at creation.
func New(params CreateParams) (*Booking, error) {
	if params.PublicID == uuid.Nil {
		return nil, ErrPublicIDRequired
	}
	if params.ListingID == uuid.Nil {
		return nil, ErrListingRequired
	}
	if params.TenantID == uuid.Nil {
		return nil, ErrTenantRequired
	}
	if err := ValidateWindow(params.Range.Start, params.Range.End); err != nil {
		return nil, err
	}
	if params.NightlyPrice < 0 {
		return nil, ErrNegativePrice
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	nights := ComputeNights(params.Range.Start, params.Range.End)
	total, err := ComputePrice(nights, params.NightlyPrice)
	if err != nil {
		return nil, err
	}
	b := &Booking{
		PublicID:          params.PublicID,
		ListingID:         params.ListingID,
		TenantID:          params.TenantID,
		Range:             params.Range,
		NumberOfTravelers: DefaultTravelers,
		TotalPrice:        total,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	b.Record(Created{
		BookingID: b.PublicID,
		ListingID: b.ListingID,
		TenantID:  b.TenantID,
		Start:     b.Range.Start,
		End:       b.Range.End,
		Nights:    nights,
		Total:     b.TotalPrice,
		At:        now,
	})
	return b, nil
}

// Cancelled records the hard deletion of a booking.
func Cancelled(bookingID, listingID, by uuid.UUID, byLandlord bool, now time.Time) CancelledEvent {
	return CancelledEvent{BookingID: bookingID, ListingID: listingID, By: by, ByLandlord: byLandlord, At: now.UTC()}
}

func (b *Booking) Nights() int {
	return ComputeNights(b.Range.Start, b.Range.End)
}

// Clone copies the persisted fields, pending events are not carried over.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	return &Booking{
		ID:                b.ID,
		PublicID:          b.PublicID,
		ListingID:         b.ListingID,
		TenantID:          b.TenantID,
		Range:             b.Range,
		NumberOfTravelers: b.NumberOfTravelers,
		TotalPrice:        b.TotalPrice,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// ListingIDs returns the distinct listing references in order of first appearance.
func ListingIDs(items []*Booking) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]uuid.UUID, 0, len(items))
	for _, b := range items {
		if _, ok := seen[b.ListingID]; ok {
			continue
		}
		seen[b.ListingID] = struct{}{}
		out = append(out, b.ListingID)
	}
	return out
}
