package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "homestay/internal/domain/listings"
)

// ListingCatalog reads the booking projection of listings kept in the
// listings collection, keyed by public id.
type ListingCatalog struct {
	col *mongo.Collection
}

func NewListingCatalog(db *mongo.Database) *ListingCatalog {
	return &ListingCatalog{col: db.Collection(listingsCollection)}
}

// Upsert replaces the stored projection of a listing.
func (c *ListingCatalog) Upsert(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil {
		return domainlistings.ErrPublicIDRequired
	}
	copied := *listing
	if err := copied.Validate(); err != nil {
		return err
	}
	doc := newListingDocument(&copied)
	_, err := c.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", doc.ID, err)
	}
	return nil
}

func (c *ListingCatalog) ByPublicID(ctx context.Context, id uuid.UUID) (*domainlistings.Listing, error) {
	return c.findOne(ctx, bson.M{"_id": id.String()})
}

func (c *ListingCatalog) ByPublicIDAndLandlord(ctx context.Context, id, landlordID uuid.UUID) (*domainlistings.Listing, error) {
	return c.findOne(ctx, bson.M{"_id": id.String(), "landlord_public_id": landlordID.String()})
}

func (c *ListingCatalog) ByPublicIDs(ctx context.Context, ids []uuid.UUID) ([]*domainlistings.Listing, error) {
	if len(ids) == 0 {
		return []*domainlistings.Listing{}, nil
	}
	return c.find(ctx, bson.M{"_id": bson.M{"$in": uuidStrings(ids)}})
}

func (c *ListingCatalog) ByLandlord(ctx context.Context, landlordID uuid.UUID) ([]*domainlistings.Listing, error) {
	return c.find(ctx, bson.M{"landlord_public_id": landlordID.String()})
}

func (c *ListingCatalog) findOne(ctx context.Context, filter bson.M) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := c.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, fmt.Errorf("find listing: %w", err)
	}
	return doc.toListing()
}

func (c *ListingCatalog) find(ctx context.Context, filter bson.M) ([]*domainlistings.Listing, error) {
	cur, err := c.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "title", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find listings: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]*domainlistings.Listing, 0)
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode listing: %w", err)
		}
		listing, err := doc.toListing()
		if err != nil {
			return nil, err
		}
		out = append(out, listing)
	}
	return out, cur.Err()
}

type pictureDocument struct {
	Key         string `bson:"key"`
	ContentType string `bson:"content_type"`
	URL         string `bson:"url,omitempty"`
}

type listingDocument struct {
	ID           string          `bson:"_id"`
	LandlordID   string          `bson:"landlord_public_id"`
	Title        string          `bson:"title"`
	Location     string          `bson:"location"`
	NightlyPrice int             `bson:"price"`
	Category     string          `bson:"booking_category"`
	Cover        pictureDocument `bson:"cover"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:           l.PublicID.String(),
		LandlordID:   l.LandlordID.String(),
		Title:        l.Title,
		Location:     l.Location,
		NightlyPrice: l.NightlyPrice,
		Category:     string(l.Category),
		Cover: pictureDocument{
			Key:         l.Cover.Key,
			ContentType: l.Cover.ContentType,
			URL:         l.Cover.URL,
		},
	}
}

func (d listingDocument) toListing() (*domainlistings.Listing, error) {
	publicID, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("listing id %q: %w", d.ID, err)
	}
	landlordID, err := uuid.Parse(d.LandlordID)
	if err != nil {
		return nil, fmt.Errorf("listing %s landlord id: %w", d.ID, err)
	}
	return &domainlistings.Listing{
		PublicID:     publicID,
		LandlordID:   landlordID,
		Title:        d.Title,
		Location:     d.Location,
		NightlyPrice: d.NightlyPrice,
		Category:     domainlistings.BookingCategory(d.Category),
		Cover: domainlistings.Picture{
			Key:         d.Cover.Key,
			ContentType: d.Cover.ContentType,
			URL:         d.Cover.URL,
		},
	}, nil
}

var _ domainlistings.Catalog = (*ListingCatalog)(nil)
