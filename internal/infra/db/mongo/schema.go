package mongo

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "homestay/internal/domain/booking"
)

const (
	bookingsCollection    = "bookings"
	countersCollection    = "counters"
	locksCollection       = "booking_locks"
	listingsCollection    = "listings"
	outboxCollection      = "app_outbox"
	idempotencyCollection = "app_idempotency"

	bookingSequence = "bookings"

	codeWriteConflict = 112
	labelTransientTxn = "TransientTransactionError"
)

var defaultIdempotencyTTL = 7 * 24 * time.Hour

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		bookingsCollection: {
			{Keys: bson.D{{Key: "public_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "fk_listing", Value: 1}, {Key: "start_date", Value: 1}, {Key: "end_date", Value: 1}}},
			{Keys: bson.D{{Key: "fk_tenant", Value: 1}}},
		},
		listingsCollection: {
			{Keys: bson.D{{Key: "landlord_public_id", Value: 1}}},
		},
		outboxCollection: {
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		},
		idempotencyCollection: {
			{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(defaultIdempotencyTTL.Seconds()))},
		},
	}
}

// isConflict reports contention between transactions on the same document.
func isConflict(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(codeWriteConflict) || se.HasErrorLabel(labelTransientTxn)
}

// classifyLockError turns losing a race on a lock document into ErrCalendarBusy.
func classifyLockError(err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) || mongo.IsDuplicateKeyError(err) {
		return errors.Join(domainbooking.ErrCalendarBusy, err)
	}
	return err
}
