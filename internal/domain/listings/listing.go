package listings

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound         = errors.New("listings: not found")
	ErrPublicIDRequired = errors.New("listings: public id is required")
	ErrLandlordRequired = errors.New("listings: landlord public id is required")
	ErrNightlyPrice     = errors.New("listings: nightly price must be non-negative")
)

type BookingCategory string

const (
	CategoryAll       BookingCategory = "ALL"
	CategoryAmazing   BookingCategory = "AMAZING_VIEWS"
	CategoryBeach     BookingCategory = "BEACH"
	CategoryCountry   BookingCategory = "COUNTRYSIDE"
	CategoryApartment BookingCategory = "APARTMENT"
)

// Picture references a stored image; URL is resolved at read time when empty.
type Picture struct {
	Key         string
	ContentType string
	URL         string
}

// Listing is the booking-facing projection of a catalog entry.
type Listing struct {
	PublicID     uuid.UUID
	LandlordID   uuid.UUID
	Title        string
	Location     string
	NightlyPrice int
	Category     BookingCategory
	Cover        Picture
}

// Catalog is the listing collaborator consulted by the booking service.
type Catalog interface {
	ByPublicID(ctx context.Context, id uuid.UUID) (*Listing, error)
	ByPublicIDAndLandlord(ctx context.Context, id, landlordID uuid.UUID) (*Listing, error)
	ByPublicIDs(ctx context.Context, ids []uuid.UUID) ([]*Listing, error)
	ByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*Listing, error)
}

// Validate checks the fields the booking engine depends on.
func (l *Listing) Validate() error {
	if l.PublicID == uuid.Nil {
		return ErrPublicIDRequired
	}
	if l.LandlordID == uuid.Nil {
		return ErrLandlordRequired
	}
	if l.NightlyPrice < 0 {
		return ErrNightlyPrice
	}
	if strings.TrimSpace(string(l.Category)) == "" {
		l.Category = CategoryAll
	}
	return nil
}

func (l *Listing) OwnedBy(landlordID uuid.UUID) bool {
	return l != nil && landlordID != uuid.Nil && l.LandlordID == landlordID
}

// Index maps listings by public id.
func Index(items []*Listing) map[uuid.UUID]*Listing {
	out := make(map[uuid.UUID]*Listing, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out[item.PublicID] = item
	}
	return out
}
