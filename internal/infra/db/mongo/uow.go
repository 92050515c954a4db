package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"homestay/internal/app/uow"
	domainbooking "homestay/internal/domain/booking"
	domainlistings "homestay/internal/domain/listings"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Locks, when set, is acquired before the lock document is written so that
// writers queue instead of failing on a write conflict.
type Factory struct {
	DB *mongo.Database

	Bookings *BookingStore
	Catalog  domainlistings.Catalog
	Locks    uow.ListingLocker
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.Bookings == nil || f.Catalog == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		locks:    f.DB.Collection(locksCollection),
		bookings: f.Bookings,
		catalog:  f.Catalog,
		locker:   f.Locks,
		readOnly: opts.ReadOnly,
		held:     make(map[uuid.UUID]uow.Release),
	}, nil
}

type Unit struct {
	session  mongo.Session
	locks    *mongo.Collection
	bookings *BookingStore
	catalog  domainlistings.Catalog
	locker   uow.ListingLocker
	readOnly bool

	mu   sync.Mutex
	held map[uuid.UUID]uow.Release
}

func (u *Unit) Bookings() domainbooking.Store {
	if u.readOnly {
		return readOnlyBookings{u.bookings}
	}
	return u.bookings
}

func (u *Unit) Listings() domainlistings.Catalog {
	return u.catalog
}

// LockListing touches the listing's lock document inside the transaction.
// It must be the first operation of the unit: the snapshot is fixed by the
// first operation, and the locker in front only admits the next writer after
// the previous one committed. A transaction that still races on the document
// aborts with a write conflict, which surfaces as ErrCalendarBusy.
func (u *Unit) LockListing(ctx context.Context, listingID uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.held[listingID]; ok {
		return nil
	}
	release := uow.Release(func() {})
	if u.locker != nil {
		r, err := u.locker.Acquire(ctx, listingID)
		if err != nil {
			return err
		}
		release = r
	}
	_, err := u.locks.UpdateOne(mongo.NewSessionContext(ctx, u.session),
		bson.M{"_id": listingID.String()},
		bson.M{"$inc": bson.M{"version": int64(1)}, "$set": bson.M{"locked_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		release()
		return fmt.Errorf("lock listing %s: %w", listingID, classifyLockError(err))
	}
	u.held[listingID] = release
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.finish(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isConflict(err) {
			return errors.Join(domainbooking.ErrCalendarBusy, err)
		}
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.finish(ctx)
	return u.session.AbortTransaction(ctx)
}

func (u *Unit) finish(ctx context.Context) {
	u.session.EndSession(ctx)
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, release := range u.held {
		release()
		delete(u.held, id)
	}
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

type readOnlyBookings struct {
	*BookingStore
}

func (readOnlyBookings) DeleteByTenantAndPublicID(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, uow.ErrReadOnly
}

func (readOnlyBookings) DeleteByPublicIDAndListing(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, uow.ErrReadOnly
}

func (readOnlyBookings) Insert(context.Context, *domainbooking.Booking) (*domainbooking.Booking, error) {
	return nil, uow.ErrReadOnly
}
