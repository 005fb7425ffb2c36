package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "kodesha/internal/app/outbox"
	"kodesha/internal/app/uow"
)

// Outbox queues event records for the publishing worker. Add issued inside a
// unit of work stages the record on that unit, so events become claimable only
// when the unit commits; a failed commit discards them with the writes they
// describe.
type Outbox struct {
	mu    sync.Mutex
	ready []queuedRecord
}

type queuedRecord struct {
	record   appoutbox.EventRecord
	attempts int
	notUntil time.Time
	claimed  bool
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if u, ok := unit.(*Unit); ok {
			u.stageEvent(o, record)
			return nil
		}
	}
	o.enqueue(record)
	return nil
}

// Flush is kept for the middleware contract; records reach the queue when
// their unit of work commits.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) enqueue(record appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ready = append(o.ready, queuedRecord{record: record})
}

// Claim hands the next publishable record to a worker, skipping records
// waiting out a retry backoff. Returns nil when the queue is drained.
func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.EventRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now()
	for i := range o.ready {
		q := &o.ready[i]
		if q.claimed || now.Before(q.notUntil) {
			continue
		}
		q.claimed = true
		rec := q.record
		return &rec, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, recordID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ready {
		if o.ready[i].record.ID == recordID {
			o.ready = append(o.ready[:i], o.ready[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, recordID string, retryAt time.Time, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ready {
		if o.ready[i].record.ID == recordID {
			o.ready[i].claimed = false
			o.ready[i].attempts++
			o.ready[i].notUntil = retryAt
			return nil
		}
	}
	return nil
}

// Attempts reports retry counts for a record, used by the worker's backoff.
func (o *Outbox) Attempts(ctx context.Context, recordID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ready {
		if o.ready[i].record.ID == recordID {
			return o.ready[i].attempts
		}
	}
	return 0
}

var _ appoutbox.Outbox = (*Outbox)(nil)
