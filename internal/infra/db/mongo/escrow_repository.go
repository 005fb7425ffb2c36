package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
)

type EscrowRepository struct {
	col *mongo.Collection
}

func NewEscrowRepository(db *mongo.Database) *EscrowRepository {
	return &EscrowRepository{col: db.Collection("agg_escrow")}
}

func (r *EscrowRepository) ByBookingID(ctx context.Context, id domainbooking.BookingID) (*domainescrow.Record, error) {
	var doc escrowDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainescrow.ErrRecordNotFound
		}
		return nil, err
	}
	return doc.toRecord(), nil
}

func (r *EscrowRepository) Save(ctx context.Context, rec *domainescrow.Record) error {
	doc := newEscrowDocument(rec)
	filter := bson.M{"_id": doc.BookingID, "version": rec.Version}
	doc.Version = rec.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	rec.Version = doc.Version
	return nil
}

type escrowDocument struct {
	BookingID string        `bson:"_id"`
	Amount    moneyDocument `bson:"amount"`
	Stage     string        `bson:"stage"`
	CreatedAt int64         `bson:"created_at"`
	UpdatedAt int64         `bson:"updated_at"`
	Version   int64         `bson:"version"`
}

func newEscrowDocument(rec *domainescrow.Record) escrowDocument {
	return escrowDocument{
		BookingID: string(rec.BookingID),
		Amount:    newMoneyDocument(rec.Amount),
		Stage:     string(rec.Stage),
		CreatedAt: rec.CreatedAt.UnixMilli(),
		UpdatedAt: rec.UpdatedAt.UnixMilli(),
		Version:   rec.Version,
	}
}

func (d escrowDocument) toRecord() *domainescrow.Record {
	return &domainescrow.Record{
		BookingID: domainbooking.BookingID(d.BookingID),
		Amount:    d.Amount.toMoney(),
		Stage:     domainescrow.Stage(d.Stage),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}
