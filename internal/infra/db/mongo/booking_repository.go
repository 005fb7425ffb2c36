package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "kodesha/internal/domain/booking"
	domainpricing "kodesha/internal/domain/pricing"
	domainrange "kodesha/internal/domain/shared/daterange"
	"kodesha/internal/domain/shared/money"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection("agg_booking")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
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
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.RenterID != "" {
		query["renter_id"] = filter.RenterID
	}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID              string            `bson:"_id"`
	RenterID        string            `bson:"renter_id"`
	OwnerID         string            `bson:"owner_id"`
	Request         requestDocument   `bson:"request"`
	Breakdown       breakdownDocument `bson:"breakdown"`
	Status          string            `bson:"status"`
	Payment         string            `bson:"payment"`
	DeliveryAddress string            `bson:"delivery_address"`
	Notes           string            `bson:"notes,omitempty"`
	CancelReason    string            `bson:"cancel_reason,omitempty"`
	Disputed        bool              `bson:"disputed"`
	CreatedAt       int64             `bson:"created_at"`
	UpdatedAt       int64             `bson:"updated_at"`
	Version         int64             `bson:"version"`
}

type requestDocument struct {
	ProductID       string        `bson:"product_id"`
	Mode            string        `bson:"mode"`
	UnitPrice       moneyDocument `bson:"unit_price"`
	PeriodStart     int64         `bson:"period_start"`
	PeriodEnd       int64         `bson:"period_end"`
	Deposit         moneyDocument `bson:"deposit"`
	PlatformFeeRate float64       `bson:"platform_fee_rate"`
}

type breakdownDocument struct {
	Days        int           `bson:"days"`
	Subtotal    moneyDocument `bson:"subtotal"`
	PlatformFee moneyDocument `bson:"platform_fee"`
	Deposit     moneyDocument `bson:"deposit"`
	Total       moneyDocument `bson:"total"`
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:       string(b.ID),
		RenterID: b.RenterID,
		OwnerID:  b.OwnerID,
		Request: requestDocument{
			ProductID:       b.Request.ProductID,
			Mode:            string(b.Request.Mode),
			UnitPrice:       newMoneyDocument(b.Request.UnitPrice),
			PeriodStart:     b.Request.Period.Start.UnixMilli(),
			PeriodEnd:       b.Request.Period.End.UnixMilli(),
			Deposit:         newMoneyDocument(b.Request.Deposit),
			PlatformFeeRate: b.Request.PlatformFeeRate,
		},
		Breakdown: breakdownDocument{
			Days:        b.Breakdown.Days,
			Subtotal:    newMoneyDocument(b.Breakdown.Subtotal),
			PlatformFee: newMoneyDocument(b.Breakdown.PlatformFee),
			Deposit:     newMoneyDocument(b.Breakdown.Deposit),
			Total:       newMoneyDocument(b.Breakdown.Total),
		},
		Status:          string(b.Status),
		Payment:         string(b.Payment),
		DeliveryAddress: b.DeliveryAddress,
		Notes:           b.Notes,
		CancelReason:    b.CancelReason,
		Disputed:        b.Disputed,
		CreatedAt:       b.CreatedAt.UnixMilli(),
		UpdatedAt:       b.UpdatedAt.UnixMilli(),
		Version:         b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:       domainbooking.BookingID(d.ID),
		RenterID: d.RenterID,
		OwnerID:  d.OwnerID,
		Request: domainpricing.BookingRequest{
			ProductID:       d.Request.ProductID,
			Mode:            domainpricing.Mode(d.Request.Mode),
			UnitPrice:       d.Request.UnitPrice.toMoney(),
			Period:          domainrange.DateRange{Start: timestampToTime(d.Request.PeriodStart), End: timestampToTime(d.Request.PeriodEnd)},
			Deposit:         d.Request.Deposit.toMoney(),
			PlatformFeeRate: d.Request.PlatformFeeRate,
		},
		Breakdown: domainpricing.PriceBreakdown{
			Days:        d.Breakdown.Days,
			Subtotal:    d.Breakdown.Subtotal.toMoney(),
			PlatformFee: d.Breakdown.PlatformFee.toMoney(),
			Deposit:     d.Breakdown.Deposit.toMoney(),
			Total:       d.Breakdown.Total.toMoney(),
		},
		Status:          domainbooking.Status(d.Status),
		Payment:         domainbooking.PaymentStatus(d.Payment),
		DeliveryAddress: d.DeliveryAddress,
		Notes:           d.Notes,
		CancelReason:    d.CancelReason,
		Disputed:        d.Disputed,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
