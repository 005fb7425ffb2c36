package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "kodesha/internal/app/handlers/booking"
	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	"kodesha/internal/domain/shared/money"
	domainwallet "kodesha/internal/domain/wallet"
	"kodesha/internal/infra/storage/memory"
)

var testNow = time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC)

type fixture struct {
	bookings *memory.BookingRepository
	escrow   *memory.EscrowRepository
	wallets  *memory.WalletRepository
	factory  memory.Factory
	outbox   *memory.Outbox

	create     *bookingapp.CreateBookingHandler
	markPaid   *bookingapp.MarkPaidHandler
	transition *bookingapp.TransitionBookingHandler
	resolve    *bookingapp.ResolveDisputeHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		bookings: memory.NewBookingRepository(),
		escrow:   memory.NewEscrowRepository(),
		wallets:  memory.NewWalletRepository(),
		outbox:   memory.NewOutbox(),
	}
	f.factory = memory.NewFactory(f.bookings, f.escrow, f.wallets)
	clock := func() time.Time { return testNow }
	f.create = &bookingapp.CreateBookingHandler{
		UoWFactory: f.factory,
		Outbox:     f.outbox,
		Currency:   "RWF",
		FeeRate:    0.10,
		Clock:      clock,
	}
	f.markPaid = &bookingapp.MarkPaidHandler{UoWFactory: f.factory, Outbox: f.outbox, Clock: clock}
	f.transition = &bookingapp.TransitionBookingHandler{UoWFactory: f.factory, Outbox: f.outbox, Clock: clock}
	f.resolve = &bookingapp.ResolveDisputeHandler{UoWFactory: f.factory, Clock: clock}
	return f
}

func (f *fixture) createBooking(t *testing.T) string {
	t.Helper()
	res, err := f.create.Handle(context.Background(), bookingapp.CreateBookingCommand{
		CommandID: "bk-1",
		ProductID: "prod-1",
		RenterID:  "renter-1",
		OwnerID:   "owner-1",
		Mode:      "rent",
		UnitPrice: 50000,
		StartDate: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return res.Booking.ID
}

func (f *fixture) apply(t *testing.T, id, action, reason string) (*bookingapp.TransitionBookingResult, error) {
	t.Helper()
	return f.transition.Handle(context.Background(), bookingapp.TransitionBookingCommand{
		BookingID: id,
		Action:    action,
		Reason:    reason,
		ActorID:   "actor-1",
	})
}

func TestCreateBookingOpensEscrow(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	b, err := f.bookings.ByID(context.Background(), domainbooking.BookingID(id))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, b.Status)

	rec, err := f.escrow.ByBookingID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domainescrow.StagePending, rec.Stage)
	assert.Equal(t, b.Breakdown.Total, rec.Amount, "escrow holds the full booking total")
}

func TestHappyPathReleasesAndCreditsOwner(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)

	res, err := f.apply(t, id, "approve", "")
	require.NoError(t, err)
	assert.Equal(t, "confirmed", res.Booking.Status)
	assert.Equal(t, "pending", res.Escrow.Stage)

	res, err = f.apply(t, id, "activate", "")
	require.NoError(t, err)
	assert.Equal(t, "active", res.Booking.Status)
	assert.Equal(t, "locked", res.Escrow.Stage, "activation locks the escrowed funds")

	res, err = f.apply(t, id, "complete", "")
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Booking.Status)
	assert.Equal(t, "released", res.Escrow.Stage)

	w, err := f.wallets.ByUserID(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, money.RWF(150000), w.Balance, "owner receives the subtotal, not the platform fee")
	require.Len(t, w.Entries, 1)
	assert.Equal(t, domainwallet.EntryRental, w.Entries[0].Type)
	assert.Equal(t, id, w.Entries[0].Reference)
}

func TestCancelRefundsEscrow(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	res, err := f.apply(t, id, "cancel", "renter changed plans")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.Booking.Status)
	assert.Equal(t, "refunded", res.Escrow.Stage)
	assert.Equal(t, "refunded", res.Booking.PaymentStatus)
}

func TestCancelWithoutReasonFails(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	_, err := f.apply(t, id, "cancel", "")
	require.Error(t, err)

	b, err := f.bookings.ByID(context.Background(), domainbooking.BookingID(id))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, b.Status)
}

func TestApproveWithoutPaymentFails(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	_, err := f.apply(t, id, "approve", "")
	assert.ErrorIs(t, err, domainbooking.ErrPaymentRequired)
}

func TestApproveReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)

	first, err := f.apply(t, id, "approve", "")
	require.NoError(t, err)
	second, err := f.apply(t, id, "approve", "")
	require.NoError(t, err)
	assert.Equal(t, first.Booking.Status, second.Booking.Status)
	assert.Equal(t, first.Escrow.Stage, second.Escrow.Stage)
}

func TestCompleteReplayDoesNotPayTwice(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)
	_, err = f.apply(t, id, "approve", "")
	require.NoError(t, err)
	_, err = f.apply(t, id, "activate", "")
	require.NoError(t, err)
	_, err = f.apply(t, id, "complete", "")
	require.NoError(t, err)

	_, err = f.apply(t, id, "complete", "")
	require.NoError(t, err)

	w, err := f.wallets.ByUserID(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, money.RWF(150000), w.Balance, "replaying complete must not credit the owner twice")
	assert.Len(t, w.Entries, 1)
}

func TestCompleteFailsAtomicallyOnReleasedEscrow(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)
	_, err = f.apply(t, id, "approve", "")
	require.NoError(t, err)
	_, err = f.apply(t, id, "activate", "")
	require.NoError(t, err)

	// Corrupt the escrow behind the handler's back: release it directly.
	rec, err := f.escrow.ByBookingID(ctx, domainbooking.BookingID(id))
	require.NoError(t, err)
	require.NoError(t, rec.Release(testNow))
	require.NoError(t, f.escrow.Save(ctx, rec))

	_, err = f.apply(t, id, "complete", "")
	var stateErr *domainescrow.StateError
	require.ErrorAs(t, err, &stateErr)

	b, err := f.bookings.ByID(ctx, domainbooking.BookingID(id))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusActive, b.Status, "booking must not advance when the escrow step fails")

	_, err = f.wallets.ByUserID(ctx, "owner-1")
	assert.ErrorIs(t, err, domainwallet.ErrWalletNotFound, "no payout without a successful release")
}

func TestDisputeFreezesEscrowAndResolutionSettles(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)
	_, err = f.apply(t, id, "approve", "")
	require.NoError(t, err)
	_, err = f.apply(t, id, "activate", "")
	require.NoError(t, err)

	res, err := f.apply(t, id, "dispute", "item damaged")
	require.NoError(t, err)
	assert.Equal(t, "active", res.Booking.Status)
	assert.True(t, res.Booking.Disputed)
	assert.Equal(t, "disputed", res.Escrow.Stage)

	t.Run("complete is blocked while disputed", func(t *testing.T) {
		_, err := f.apply(t, id, "complete", "")
		var stateErr *domainescrow.StateError
		require.ErrorAs(t, err, &stateErr)
	})

	t.Run("refund resolution", func(t *testing.T) {
		out, err := f.resolve.Handle(ctx, bookingapp.ResolveDisputeCommand{
			BookingID:  id,
			Resolution: "refund",
			AdminID:    "admin-1",
		})
		require.NoError(t, err)
		assert.Equal(t, "refunded", out.Escrow.Stage)
	})
}

func TestResolveReleaseSettlesForSeller(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)
	_, err = f.apply(t, id, "approve", "")
	require.NoError(t, err)
	_, err = f.apply(t, id, "activate", "")
	require.NoError(t, err)
	_, err = f.apply(t, id, "dispute", "no-show at return")
	require.NoError(t, err)

	out, err := f.resolve.Handle(ctx, bookingapp.ResolveDisputeCommand{
		BookingID:  id,
		Resolution: "release",
		AdminID:    "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "released", out.Escrow.Stage)
}

func TestUnknownActionFails(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)

	_, err := f.apply(t, id, "teleport", "")
	assert.ErrorIs(t, err, bookingapp.ErrUnknownAction)
}

func TestTransitionEventsReachOutbox(t *testing.T) {
	f := newFixture(t)
	id := f.createBooking(t)
	ctx := context.Background()

	_, err := f.markPaid.Handle(ctx, bookingapp.MarkPaidCommand{BookingID: id})
	require.NoError(t, err)
	_, err = f.apply(t, id, "approve", "")
	require.NoError(t, err)

	names := make([]string, 0)
	for {
		rec, err := f.outbox.Claim(ctx, "test-worker")
		require.NoError(t, err)
		if rec == nil {
			break
		}
		names = append(names, rec.Name)
		require.NoError(t, f.outbox.MarkSent(ctx, rec.ID))
	}
	assert.Equal(t, []string{"booking.created", "booking.paid", "booking.approved"}, names)
}
