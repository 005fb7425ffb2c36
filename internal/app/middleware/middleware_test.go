package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kodesha/internal/app/commands"
	bookingapp "kodesha/internal/app/handlers/booking"
	"kodesha/internal/app/middleware"
	domainbooking "kodesha/internal/domain/booking"
	"kodesha/internal/domain/pricing"
	"kodesha/internal/domain/shared/daterange"
	"kodesha/internal/domain/shared/money"
	"kodesha/internal/infra/storage/memory"
)

var testNow = time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC)

func newPipeline(t *testing.T) (commands.Bus, *memory.BookingRepository, *memory.Outbox) {
	t.Helper()
	bookings := memory.NewBookingRepository()
	factory := memory.NewFactory(bookings, memory.NewEscrowRepository(), memory.NewWalletRepository())
	box := memory.NewOutbox()

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: factory,
		Outbox:     box,
		Currency:   "RWF",
		FeeRate:    0.10,
		Clock:      func() time.Time { return testNow },
	})

	wrapped := middleware.ChainCommands(
		bus,
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)
	return wrapped, bookings, box
}

func createCommand(commandID, key string) bookingapp.CreateBookingCommand {
	return bookingapp.CreateBookingCommand{
		CommandID:       commandID,
		ProductID:       "prod-1",
		RenterID:        "renter-1",
		OwnerID:         "owner-1",
		Mode:            "rent",
		UnitPrice:       50000,
		StartDate:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
		IdempotencyKeyV: key,
	}
}

func TestPipelineCommitsAndFlushes(t *testing.T) {
	bus, bookings, box := newPipeline(t)
	ctx := context.Background()

	res, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](ctx, bus, createCommand("bk-1", ""))
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Booking.Status)

	stored, err := bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, stored.Status)

	rec, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, rec, "flushed events are claimable after a successful command")
	assert.Equal(t, "booking.created", rec.Name)
}

func TestPipelineReplaysIdempotentResult(t *testing.T) {
	bus, bookings, _ := newPipeline(t)
	ctx := context.Background()

	first, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](ctx, bus, createCommand("bk-1", "key-1"))
	require.NoError(t, err)

	// Same key with a different command id: the stored result is replayed
	// and no second booking is created.
	second, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](ctx, bus, createCommand("bk-2", "key-1"))
	require.NoError(t, err)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)

	_, err = bookings.ByID(ctx, "bk-2")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
}

func TestPipelineRollsBackOnFailure(t *testing.T) {
	bus, bookings, box := newPipeline(t)
	ctx := context.Background()

	cmd := createCommand("bk-1", "")
	cmd.RenterID = ""
	_, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](ctx, bus, cmd)
	require.Error(t, err)

	_, err = bookings.ByID(ctx, "bk-1")
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	rec, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, rec, "failed commands must not leak events")
}

func TestCommitConflictKeepsEventsOut(t *testing.T) {
	bookings := memory.NewBookingRepository()
	factory := memory.NewFactory(bookings, memory.NewEscrowRepository(), memory.NewWalletRepository())
	box := memory.NewOutbox()
	ctx := context.Background()

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{
		UoWFactory: factory,
		Outbox:     box,
		Currency:   "RWF",
		FeeRate:    0.10,
		Clock:      func() time.Time { return testNow },
	})

	// Innermost wrapper: sneaks a conflicting write in after the handler
	// ran but before the transaction middleware commits.
	racer := middleware.CommandMiddleware(func(next commands.Bus) commands.Bus {
		return busFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := bookings.Save(context.Background(), conflictingBooking(t)); err != nil {
				return nil, err
			}
			return res, nil
		})
	})

	wrapped := middleware.ChainCommands(
		bus,
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
		racer,
	)

	_, err := commands.Dispatch[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](ctx, wrapped, createCommand("bk-1", ""))
	require.ErrorIs(t, err, memory.ErrConcurrentUpdate)

	stored, err := bookings.ByID(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-2", stored.OwnerID, "the racer's write survives")

	rec, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, rec, "a command whose commit failed must not publish its events")
}

func conflictingBooking(t *testing.T) *domainbooking.Booking {
	t.Helper()
	period, err := daterange.New(
		time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:       "bk-1",
		RenterID: "renter-2",
		OwnerID:  "owner-2",
		Request: pricing.BookingRequest{
			ProductID: "prod-1",
			Mode:      pricing.ModeRent,
			UnitPrice: money.RWF(50000),
			Period:    period,
		},
		CreatedAt: testNow,
	})
	require.NoError(t, err)
	return b
}

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func TestUnknownCommandKey(t *testing.T) {
	bus, _, _ := newPipeline(t)
	_, err := bus.Dispatch(context.Background(), unknownCommand{})
	assert.ErrorIs(t, err, commands.ErrHandlerNotFound)
}

type unknownCommand struct{}

func (unknownCommand) Key() string { return "nope" }
