package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	domainwallet "kodesha/internal/domain/wallet"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo sessions into the generic UnitOfWork interface. Repos
// pick up the session from the context injected by the unit, so a booking
// update and its escrow side effect commit in one Mongo transaction.
type Factory struct {
	DB *mongo.Database

	BookingRepo domainbooking.Repository
	EscrowRepo  domainescrow.Repository
	WalletRepo  domainwallet.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		bookings: f.BookingRepo,
		escrow:   f.EscrowRepo,
		wallets:  f.WalletRepo,
	}, nil
}

type Unit struct {
	session mongo.Session

	bookings domainbooking.Repository
	escrow   domainescrow.Repository
	wallets  domainwallet.Repository
}

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Escrow() domainescrow.Repository { return u.escrow }

func (u *Unit) Wallets() domainwallet.Repository { return u.wallets }

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext makes the Mongo session visible to downstream repositories.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
