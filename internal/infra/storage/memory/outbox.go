package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "homestay/internal/app/outbox"
	infraoutbox "homestay/internal/infra/outbox"
)

var ErrOutboxRecordNotFound = errors.New("memory: outbox record not found")

type outboxState int

const (
	outboxNew outboxState = iota
	outboxClaimed
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       outboxState
	attempts    int
	nextAttempt time.Time
	lastError   string
}

// Outbox keeps event records in memory and serves them to the relay worker.
type Outbox struct {
	mu      sync.Mutex
	entries []*outboxEntry
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, nextAttempt: o.now()})
	return nil
}

// Flush drops records already delivered.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.entries[:0]
	for _, e := range o.entries {
		if e.state != outboxSent {
			kept = append(kept, e)
		}
	}
	o.entries = kept
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if (e.state == outboxNew || e.state == outboxFailed) && !e.nextAttempt.After(now) {
			e.state = outboxClaimed
			return &infraoutbox.Message{
				ID:         e.record.ID,
				Name:       e.record.Name,
				Payload:    e.record.Payload,
				OccurredAt: e.record.OccurredAt,
				Aggregate:  e.record.Aggregate,
				Headers:    e.record.Headers,
				Attempts:   e.attempts,
			}, nil
		}
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	return o.update(id, func(e *outboxEntry) {
		e.state = outboxSent
	})
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return o.update(id, func(e *outboxEntry) {
		e.state = outboxFailed
		e.attempts++
		e.nextAttempt = next
		e.lastError = errMsg
	})
}

// Pending lists records that were not delivered yet.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		if e.state != outboxSent {
			out = append(out, e.record)
		}
	}
	return out
}

func (o *Outbox) update(id string, fn func(*outboxEntry)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, e := range o.entries {
		if e.record.ID == id {
			fn(e)
			return nil
		}
	}
	return ErrOutboxRecordNotFound
}

var (
	_ appoutbox.Outbox   = (*Outbox)(nil)
	_ infraoutbox.Source = (*Outbox)(nil)
)
