package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	domainlistings "homestay/internal/domain/listings"
)

// ListingCatalog serves listing projections loaded from fixtures.
type ListingCatalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*domainlistings.Listing
}

func NewListingCatalog(items ...*domainlistings.Listing) (*ListingCatalog, error) {
	c := &ListingCatalog{items: make(map[uuid.UUID]*domainlistings.Listing)}
	for _, item := range items {
		if err := c.Put(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type listingFixture struct {
	PublicID     uuid.UUID `json:"publicId"`
	LandlordID   uuid.UUID `json:"landlordPublicId"`
	Title        string    `json:"title"`
	Location     string    `json:"location"`
	NightlyPrice int       `json:"price"`
	Category     string    `json:"bookingCategory"`
	Cover        struct {
		Key         string `json:"key"`
		ContentType string `json:"contentType"`
		URL         string `json:"url"`
	} `json:"cover"`
}

// LoadListingFixtures reads a JSON array of listings.
func LoadListingFixtures(path string) (*ListingCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listing fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(raw, &fixtures); err != nil {
		return nil, fmt.Errorf("decode listing fixtures: %w", err)
	}
	items := make([]*domainlistings.Listing, 0, len(fixtures))
	for _, f := range fixtures {
		items = append(items, &domainlistings.Listing{
			PublicID:     f.PublicID,
			LandlordID:   f.LandlordID,
			Title:        f.Title,
			Location:     f.Location,
			NightlyPrice: f.NightlyPrice,
			Category:     domainlistings.BookingCategory(f.Category),
			Cover:        domainlistings.Picture{Key: f.Cover.Key, ContentType: f.Cover.ContentType, URL: f.Cover.URL},
		})
	}
	return NewListingCatalog(items...)
}

func (c *ListingCatalog) Put(listing *domainlistings.Listing) error {
	if listing == nil {
		return domainlistings.ErrPublicIDRequired
	}
	copied := *listing
	if err := copied.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[copied.PublicID] = &copied
	return nil
}

// Delete removes a listing; its bookings are left dangling.
func (c *ListingCatalog) Delete(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

func (c *ListingCatalog) ByPublicID(ctx context.Context, id uuid.UUID) (*domainlistings.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	listing, ok := c.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	copied := *listing
	return &copied, nil
}

func (c *ListingCatalog) ByPublicIDAndLandlord(ctx context.Context, id, landlordID uuid.UUID) (*domainlistings.Listing, error) {
	listing, err := c.ByPublicID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !listing.OwnedBy(landlordID) {
		return nil, domainlistings.ErrNotFound
	}
	return listing, nil
}

func (c *ListingCatalog) ByPublicIDs(ctx context.Context, ids []uuid.UUID) ([]*domainlistings.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(ids))
	for _, id := range ids {
		if listing, ok := c.items[id]; ok {
			copied := *listing
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (c *ListingCatalog) ByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*domainlistings.Listing, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0)
	for _, listing := range c.items {
		if listing.OwnedBy(landlordID) {
			copied := *listing
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// All returns every listing ordered by public id.
func (c *ListingCatalog) All() []*domainlistings.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(c.items))
	for _, listing := range c.items {
		copied := *listing
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublicID.String() < out[j].PublicID.String() })
	return out
}

var _ domainlistings.Catalog = (*ListingCatalog)(nil)
