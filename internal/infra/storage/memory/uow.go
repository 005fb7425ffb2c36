package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "kodesha/internal/app/outbox"
	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	domainwallet "kodesha/internal/domain/wallet"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
// Units stage writes and apply them on Commit under a shared lock, so a
// booking transition and its escrow side effect land together or not at all.
type Factory struct {
	state *factoryState
}

type factoryState struct {
	commitMu sync.Mutex
	bookings *BookingRepository
	escrow   *EscrowRepository
	wallets  *WalletRepository
}

func NewFactory(bookings *BookingRepository, escrow *EscrowRepository, wallets *WalletRepository) Factory {
	return Factory{state: &factoryState{bookings: bookings, escrow: escrow, wallets: wallets}}
}

// Begin starts a staged transaction boundary.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.state == nil || f.state.bookings == nil || f.state.escrow == nil || f.state.wallets == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{state: f.state}, nil
}

// Unit buffers saves until Commit. Reads go straight to the repositories;
// staleness is caught by the version check at commit time.
type Unit struct {
	state          *factoryState
	stagedBookings []*domainbooking.Booking
	stagedEscrow   []*domainescrow.Record
	stagedWallets  []*domainwallet.Wallet
	stagedEvents   []stagedEvent
	done           bool
}

// stagedEvent holds an outbox record until the unit commits.
type stagedEvent struct {
	box    *Outbox
	record appoutbox.EventRecord
}

func (u *Unit) stageEvent(box *Outbox, record appoutbox.EventRecord) {
	u.stagedEvents = append(u.stagedEvents, stagedEvent{box: box, record: record})
}

func (u *Unit) Bookings() domainbooking.Repository { return bookingTx{u} }

func (u *Unit) Escrow() domainescrow.Repository { return escrowTx{u} }

func (u *Unit) Wallets() domainwallet.Repository { return walletTx{u} }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	s := u.state
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	// Validate every staged version before applying anything; the shared
	// lock keeps the check-then-apply window closed to other committers.
	for _, b := range u.stagedBookings {
		if err := s.bookings.checkVersion(b); err != nil {
			return err
		}
	}
	for _, rec := range u.stagedEscrow {
		if err := s.escrow.checkVersion(rec); err != nil {
			return err
		}
	}
	for _, w := range u.stagedWallets {
		if err := s.wallets.checkVersion(w); err != nil {
			return err
		}
	}
	for _, b := range u.stagedBookings {
		if err := s.bookings.Save(ctx, b); err != nil {
			return err
		}
	}
	for _, rec := range u.stagedEscrow {
		if err := s.escrow.Save(ctx, rec); err != nil {
			return err
		}
	}
	for _, w := range u.stagedWallets {
		if err := s.wallets.Save(ctx, w); err != nil {
			return err
		}
	}
	// Events land in the publishable queue only once the writes they
	// describe are in place.
	for _, ev := range u.stagedEvents {
		ev.box.enqueue(ev.record)
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.done = true
	u.stagedBookings = nil
	u.stagedEscrow = nil
	u.stagedWallets = nil
	u.stagedEvents = nil
	return nil
}

type bookingTx struct{ u *Unit }

func (t bookingTx) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return t.u.state.bookings.ByID(ctx, id)
}

func (t bookingTx) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := t.u.state.bookings.checkVersion(b); err != nil {
		return err
	}
	t.u.stagedBookings = append(t.u.stagedBookings, b)
	return nil
}

func (t bookingTx) List(ctx context.Context, filter domainbooking.ListFilter) ([]*domainbooking.Booking, error) {
	return t.u.state.bookings.List(ctx, filter)
}

type escrowTx struct{ u *Unit }

func (t escrowTx) ByBookingID(ctx context.Context, id domainbooking.BookingID) (*domainescrow.Record, error) {
	return t.u.state.escrow.ByBookingID(ctx, id)
}

func (t escrowTx) Save(ctx context.Context, rec *domainescrow.Record) error {
	if err := t.u.state.escrow.checkVersion(rec); err != nil {
		return err
	}
	t.u.stagedEscrow = append(t.u.stagedEscrow, rec)
	return nil
}

type walletTx struct{ u *Unit }

func (t walletTx) ByUserID(ctx context.Context, userID string) (*domainwallet.Wallet, error) {
	return t.u.state.wallets.ByUserID(ctx, userID)
}

func (t walletTx) Save(ctx context.Context, w *domainwallet.Wallet) error {
	if err := t.u.state.wallets.checkVersion(w); err != nil {
		return err
	}
	t.u.stagedWallets = append(t.u.stagedWallets, w)
	return nil
}
