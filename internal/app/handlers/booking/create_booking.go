package booking

import (
	"context"
	"time"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/middleware"
	"kodesha/internal/app/outbox"
	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
)

const createBookingKey = "booking.create"

type CreateBookingCommand struct {
	CommandID       string
	ProductID       string
	RenterID        string
	OwnerID         string
	Mode            string
	UnitPrice       int64
	StartDate       time.Time
	EndDate         time.Time
	Deposit         int64
	DeliveryAddress string
	Notes           string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

type CreateBookingResult struct {
	Booking dto.BookingView `json:"booking"`
	Escrow  dto.EscrowView  `json:"escrow"`
}

// CreateBookingHandler opens a booking in pending together with its escrow
// record, both inside one unit of work.
type CreateBookingHandler struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Currency   string
	FeeRate    float64
	Clock      func() time.Time
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	unit, execCtx, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, false)
	if err != nil {
		return nil, err
	}
	managed := cleanup != nil
	committed := false
	if managed {
		defer func() {
			if !committed {
				cleanup()
			}
		}()
	}

	req, err := buildRequest(requestInput{
		ProductID: cmd.ProductID,
		Mode:      cmd.Mode,
		UnitPrice: cmd.UnitPrice,
		StartDate: cmd.StartDate,
		EndDate:   cmd.EndDate,
		Deposit:   cmd.Deposit,
		FeeRate:   h.FeeRate,
		Currency:  h.Currency,
	})
	if err != nil {
		return nil, err
	}

	now := h.now()
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:              domainbooking.BookingID(cmd.CommandID),
		RenterID:        cmd.RenterID,
		OwnerID:         cmd.OwnerID,
		Request:         req,
		DeliveryAddress: cmd.DeliveryAddress,
		Notes:           cmd.Notes,
		CreatedAt:       now,
	})
	if err != nil {
		return nil, err
	}
	esc := domainescrow.NewRecord(b.ID, b.Breakdown.Total, now)

	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}
	if err := unit.Escrow().Save(execCtx, esc); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &CreateBookingResult{Booking: dto.MapBooking(b), Escrow: dto.MapEscrow(esc)}, nil
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
