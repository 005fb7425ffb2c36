package booking

import (
	"context"
	"time"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/outbox"
	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
)

const markPaidKey = "booking.mark_paid"

// MarkPaidCommand records that the external payment provider captured the
// booking total. Approval requires it; capture itself happens outside.
type MarkPaidCommand struct {
	BookingID string
}

func (c MarkPaidCommand) Key() string { return markPaidKey }

type MarkPaidResult struct {
	Booking dto.BookingView `json:"booking"`
}

type MarkPaidHandler struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *MarkPaidHandler) Handle(ctx context.Context, cmd MarkPaidCommand) (*MarkPaidResult, error) {
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

	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock()
	}
	if err := b.MarkPaid(now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
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
	return &MarkPaidResult{Booking: dto.MapBooking(b)}, nil
}

var _ commands.Handler[MarkPaidCommand, *MarkPaidResult] = (*MarkPaidHandler)(nil)
