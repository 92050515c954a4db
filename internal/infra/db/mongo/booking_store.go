package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "homestay/internal/domain/booking"
	"homestay/internal/domain/shared/daterange"
)

var ErrDuplicatePublicID = errors.New("mongo: booking public id already exists")

// BookingStore persists bookings in the bookings collection. Writes join the
// session transaction carried by ctx.
type BookingStore struct {
	col      *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

func NewBookingStore(db *mongo.Database) *BookingStore {
	return &BookingStore{
		col:      db.Collection(bookingsCollection),
		counters: db.Collection(countersCollection),
		now:      time.Now,
	}
}

func (s *BookingStore) ExistsOverlapping(ctx context.Context, listingID uuid.UUID, start, end time.Time) (bool, error) {
	filter := overlapFilter(start, end)
	filter["fk_listing"] = listingID.String()
	n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count overlapping bookings: %w", err)
	}
	return n > 0, nil
}

func (s *BookingStore) FindByListing(ctx context.Context, listingID uuid.UUID) ([]*domainbooking.Booking, error) {
	return s.find(ctx, bson.M{"fk_listing": listingID.String()})
}

func (s *BookingStore) FindByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domainbooking.Booking, error) {
	return s.find(ctx, bson.M{"fk_tenant": tenantID.String()})
}

func (s *BookingStore) FindByListingIn(ctx context.Context, listingIDs []uuid.UUID) ([]*domainbooking.Booking, error) {
	if len(listingIDs) == 0 {
		return []*domainbooking.Booking{}, nil
	}
	return s.find(ctx, bson.M{"fk_listing": bson.M{"$in": uuidStrings(listingIDs)}})
}

func (s *BookingStore) FindOverlappingAny(ctx context.Context, listingIDs []uuid.UUID, start, end time.Time) ([]*domainbooking.Booking, error) {
	if len(listingIDs) == 0 {
		return []*domainbooking.Booking{}, nil
	}
	filter := overlapFilter(start, end)
	filter["fk_listing"] = bson.M{"$in": uuidStrings(listingIDs)}
	return s.find(ctx, filter)
}

func (s *BookingStore) DeleteByTenantAndPublicID(ctx context.Context, tenantID, bookingID uuid.UUID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"fk_tenant": tenantID.String(), "public_id": bookingID.String()})
	if err != nil {
		return 0, fmt.Errorf("delete booking by tenant: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *BookingStore) DeleteByPublicIDAndListing(ctx context.Context, bookingID, listingID uuid.UUID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"public_id": bookingID.String(), "fk_listing": listingID.String()})
	if err != nil {
		return 0, fmt.Errorf("delete booking by listing: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *BookingStore) Insert(ctx context.Context, b *domainbooking.Booking) (*domainbooking.Booking, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	saved := b.Clone()
	saved.ID = id
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	if _, err := s.col.InsertOne(ctx, newBookingDocument(saved)); err != nil {
		switch {
		case mongo.IsDuplicateKeyError(err):
			return nil, ErrDuplicatePublicID
		case isConflict(err):
			return nil, errors.Join(domainbooking.ErrCalendarBusy, err)
		default:
			return nil, fmt.Errorf("insert booking: %w", err)
		}
	}
	b.ID, b.CreatedAt, b.UpdatedAt = saved.ID, saved.CreatedAt, saved.UpdatedAt
	return saved, nil
}

// nextID draws from the counters collection outside the caller's transaction,
// so concurrent creates on different listings never conflict on the counter.
// Ids of rolled back inserts are not reused.
func (s *BookingStore) nextID(ctx context.Context) (int64, error) {
	// A fresh context carries no session; ctx only bounds the wait.
	detached, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(detached, bson.M{"_id": bookingSequence}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next booking id: %w", err)
	}
	return doc.Seq, nil
}

func (s *BookingStore) find(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find bookings: %w", err)
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode booking: %w", err)
		}
		b, err := doc.toBooking()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}

// overlapFilter matches NOT (end_date <= start OR start_date >= end).
func overlapFilter(start, end time.Time) bson.M {
	return bson.M{
		"start_date": bson.M{"$lt": end.UnixMilli()},
		"end_date":   bson.M{"$gt": start.UnixMilli()},
	}
}

type bookingDocument struct {
	ID                int64  `bson:"_id"`
	PublicID          string `bson:"public_id"`
	ListingID         string `bson:"fk_listing"`
	TenantID          string `bson:"fk_tenant"`
	StartDate         int64  `bson:"start_date"`
	StartOffset       int    `bson:"start_offset"`
	EndDate           int64  `bson:"end_date"`
	EndOffset         int    `bson:"end_offset"`
	NumberOfTravelers int    `bson:"number_of_travelers"`
	TotalPrice        int    `bson:"total_price"`
	CreatedAt         int64  `bson:"created_date"`
	UpdatedAt         int64  `bson:"last_modified_date"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	_, startOffset := b.Range.Start.Zone()
	_, endOffset := b.Range.End.Zone()
	return bookingDocument{
		ID:                b.ID,
		PublicID:          b.PublicID.String(),
		ListingID:         b.ListingID.String(),
		TenantID:          b.TenantID.String(),
		StartDate:         b.Range.Start.UnixMilli(),
		StartOffset:       startOffset,
		EndDate:           b.Range.End.UnixMilli(),
		EndOffset:         endOffset,
		NumberOfTravelers: b.NumberOfTravelers,
		TotalPrice:        b.TotalPrice,
		CreatedAt:         b.CreatedAt.UnixMilli(),
		UpdatedAt:         b.UpdatedAt.UnixMilli(),
	}
}

func (d bookingDocument) toBooking() (*domainbooking.Booking, error) {
	publicID, err := uuid.Parse(d.PublicID)
	if err != nil {
		return nil, fmt.Errorf("booking %d public id: %w", d.ID, err)
	}
	listingID, err := uuid.Parse(d.ListingID)
	if err != nil {
		return nil, fmt.Errorf("booking %d listing id: %w", d.ID, err)
	}
	tenantID, err := uuid.Parse(d.TenantID)
	if err != nil {
		return nil, fmt.Errorf("booking %d tenant id: %w", d.ID, err)
	}
	return &domainbooking.Booking{
		ID:        d.ID,
		PublicID:  publicID,
		ListingID: listingID,
		TenantID:  tenantID,
		Range: daterange.DateRange{
			Start: timestampToTime(d.StartDate, d.StartOffset),
			End:   timestampToTime(d.EndDate, d.EndOffset),
		},
		NumberOfTravelers: d.NumberOfTravelers,
		TotalPrice:        d.TotalPrice,
		CreatedAt:         timestampToTime(d.CreatedAt, 0),
		UpdatedAt:         timestampToTime(d.UpdatedAt, 0),
	}, nil
}

func timestampToTime(ms int64, offset int) time.Time {
	t := time.UnixMilli(ms).UTC()
	if offset != 0 {
		t = t.In(time.FixedZone("", offset))
	}
	return t
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

var _ domainbooking.Store = (*BookingStore)(nil)
