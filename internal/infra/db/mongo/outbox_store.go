package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "homestay/internal/app/outbox"
	infraoutbox "homestay/internal/infra/outbox"
)

const (
	outboxStateNew     = "NEW"
	outboxStateClaimed = "CLAIMED"
	outboxStateSent    = "SENT"
	outboxStateFailed  = "FAILED"
)

// OutboxStore keeps event records in app_outbox. Add joins the session of the
// unit of work that recorded the events; the relay side runs on its own.
type OutboxStore struct {
	col *mongo.Collection
	now func() time.Time
	// ClaimLease is how long a claimed record stays invisible to other workers.
	ClaimLease time.Duration
	// SentRetention keeps delivered records around for inspection before Flush
	// removes them.
	SentRetention time.Duration
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{
		col:           db.Collection(outboxCollection),
		now:           time.Now,
		ClaimLease:    time.Minute,
		SentRetention: time.Hour,
	}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := s.now().UTC()
	doc := outboxDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       outboxStateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("outbox add %s: %w", record.Name, err)
	}
	return nil
}

// Flush deletes records delivered longer than SentRetention ago.
func (s *OutboxStore) Flush(ctx context.Context) error {
	if _, err := s.col.DeleteMany(ctx, pruneFilter(s.now().UTC().Add(-s.SentRetention))); err != nil {
		return fmt.Errorf("outbox prune: %w", err)
	}
	return nil
}

func pruneFilter(sentBefore time.Time) bson.M {
	return bson.M{"state": outboxStateSent, "sent_at": bson.M{"$lt": sentBefore}}
}

type outboxDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by,omitempty"`
	ClaimedAt   time.Time         `bson:"claimed_at,omitempty"`
	SentAt      time.Time         `bson:"sent_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

func (d outboxDocument) toMessage() *infraoutbox.Message {
	return &infraoutbox.Message{
		ID:         d.ID,
		Name:       d.Name,
		Payload:    d.Payload,
		OccurredAt: d.OccurredAt,
		Aggregate:  d.Aggregate,
		Headers:    d.Headers,
		Attempts:   d.Attempts,
	}
}

// Claim takes the oldest due record. Records claimed by a worker that died
// become claimable again once the lease has passed.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	now := s.now().UTC()
	filter := claimFilter(now, now.Add(-s.ClaimLease))
	update := bson.M{"$set": bson.M{"state": outboxStateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})
	var doc outboxDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("outbox claim: %w", err)
	}
	return doc.toMessage(), nil
}

func claimFilter(now, staleBefore time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"state": bson.M{"$in": bson.A{outboxStateNew, outboxStateFailed}}, "next_attempt_at": bson.M{"$lte": now}},
		bson.M{"state": outboxStateClaimed, "claimed_at": bson.M{"$lte": staleBefore}},
	}}
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": outboxStateSent, "sent_at": s.now().UTC()}})
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           outboxStateFailed,
			"next_attempt_at": next,
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

var (
	_ appoutbox.Outbox   = (*OutboxStore)(nil)
	_ infraoutbox.Source = (*OutboxStore)(nil)
)
