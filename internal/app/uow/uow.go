package uow

import (
	"context"

	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	domainwallet "kodesha/internal/domain/wallet"
)

// UnitOfWork coordinates repositories inside a transaction boundary. A
// booking status change and its escrow side effect always commit together
// or not at all.
type UnitOfWork interface {
	Bookings() domainbooking.Repository
	Escrow() domainescrow.Repository
	Wallets() domainwallet.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Factory starts unit of work instances.
type Factory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that must thread driver state,
// such as a database session, through the execution context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
