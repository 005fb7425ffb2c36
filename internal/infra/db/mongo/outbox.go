package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "kodesha/internal/app/outbox"
)

const (
	outboxStateNew     = "NEW"
	outboxStateClaimed = "CLAIMED"
	outboxStateSent    = "SENT"
	outboxStateFailed  = "FAILED"
)

// OutboxStore persists event records in the app_outbox collection. Add runs
// in the caller's session context, so records written during a command roll
// back with the transaction that produced them.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	col := db.Collection("app_outbox")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &OutboxStore{col: col}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
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
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

// Flush is kept for the middleware contract; records become visible when the
// surrounding transaction commits.
func (s *OutboxStore) Flush(ctx context.Context) error {
	return nil
}

// Claim flips the oldest publishable record to CLAIMED and hands it to the
// worker. Returns nil when nothing is due.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*appoutbox.EventRecord, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"state":           bson.M{"$in": []string{outboxStateNew, outboxStateFailed}},
		"next_attempt_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"state": outboxStateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)
	var doc outboxDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	rec := doc.toRecord()
	return &rec, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, recordID string) error {
	update := bson.M{"$set": bson.M{"state": outboxStateSent, "sent_at": time.Now().UTC()}}
	_, err := s.col.UpdateByID(ctx, recordID, update)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, recordID string, retryAt time.Time, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           outboxStateFailed,
			"next_attempt_at": retryAt,
			"last_error":      reason,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, recordID, update)
	return err
}

func (s *OutboxStore) Attempts(ctx context.Context, recordID string) int {
	var doc outboxDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": recordID}).Decode(&doc); err != nil {
		return 0
	}
	return doc.Attempts
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

func (d outboxDocument) toRecord() appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         d.ID,
		Name:       d.Name,
		Payload:    d.Payload,
		OccurredAt: d.OccurredAt,
		Aggregate:  d.Aggregate,
		Headers:    d.Headers,
	}
}

var _ appoutbox.Outbox = (*OutboxStore)(nil)
