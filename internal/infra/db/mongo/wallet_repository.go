package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainwallet "kodesha/internal/domain/wallet"
)

type WalletRepository struct {
	col *mongo.Collection
}

func NewWalletRepository(db *mongo.Database) *WalletRepository {
	return &WalletRepository{col: db.Collection("agg_wallet")}
}

func (r *WalletRepository) ByUserID(ctx context.Context, userID string) (*domainwallet.Wallet, error) {
	var doc walletDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainwallet.ErrWalletNotFound
		}
		return nil, err
	}
	return doc.toWallet(), nil
}

func (r *WalletRepository) Save(ctx context.Context, w *domainwallet.Wallet) error {
	doc := newWalletDocument(w)
	filter := bson.M{"_id": doc.UserID, "version": w.Version}
	doc.Version = w.Version + 1
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
	w.Version = doc.Version
	return nil
}

type walletDocument struct {
	UserID    string          `bson:"_id"`
	Balance   moneyDocument   `bson:"balance"`
	Entries   []entryDocument `bson:"entries"`
	UpdatedAt int64           `bson:"updated_at"`
	Version   int64           `bson:"version"`
}

type entryDocument struct {
	ID        string        `bson:"id"`
	Type      string        `bson:"type"`
	Amount    moneyDocument `bson:"amount"`
	Method    string        `bson:"method,omitempty"`
	Reference string        `bson:"reference,omitempty"`
	At        int64         `bson:"at"`
}

func newWalletDocument(w *domainwallet.Wallet) walletDocument {
	entries := make([]entryDocument, 0, len(w.Entries))
	for _, e := range w.Entries {
		entries = append(entries, entryDocument{
			ID:        e.ID,
			Type:      string(e.Type),
			Amount:    newMoneyDocument(e.Amount),
			Method:    string(e.Method),
			Reference: e.Reference,
			At:        e.At.UnixMilli(),
		})
	}
	return walletDocument{
		UserID:    w.UserID,
		Balance:   newMoneyDocument(w.Balance),
		Entries:   entries,
		UpdatedAt: w.UpdatedAt.UnixMilli(),
		Version:   w.Version,
	}
}

func (d walletDocument) toWallet() *domainwallet.Wallet {
	entries := make([]domainwallet.Entry, 0, len(d.Entries))
	for _, e := range d.Entries {
		entries = append(entries, domainwallet.Entry{
			ID:        e.ID,
			Type:      domainwallet.EntryType(e.Type),
			Amount:    e.Amount.toMoney(),
			Method:    domainwallet.PaymentMethod(e.Method),
			Reference: e.Reference,
			At:        timestampToTime(e.At),
		})
	}
	return &domainwallet.Wallet{
		UserID:    d.UserID,
		Balance:   d.Balance.toMoney(),
		Entries:   entries,
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}
