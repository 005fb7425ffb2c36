package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/outbox"
	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	domainwallet "kodesha/internal/domain/wallet"
)

const transitionBookingKey = "booking.transition"

var ErrUnknownAction = errors.New("booking: unknown action")

type TransitionBookingCommand struct {
	BookingID string
	Action    string
	Reason    string
	ActorID   string
}

func (c TransitionBookingCommand) Key() string { return transitionBookingKey }

type TransitionBookingResult struct {
	Booking dto.BookingView `json:"booking"`
	Escrow  dto.EscrowView  `json:"escrow"`
}

// TransitionBookingHandler applies exactly one lifecycle action and its
// escrow side effect atomically: either both the booking and its escrow
// record persist, or neither does. Racing callers lose on the version check
// in Save and surface an error instead of corrupting state.
type TransitionBookingHandler struct {
	UoWFactory uow.Factory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      func() time.Time
}

func (h *TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (*TransitionBookingResult, error) {
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
	esc, err := unit.Escrow().ByBookingID(execCtx, b.ID)
	if err != nil {
		return nil, err
	}

	now := h.now()
	prev := b.Status
	switch domainbooking.Action(cmd.Action) {
	case domainbooking.ActionApprove:
		err = b.Approve(now)
	case domainbooking.ActionActivate:
		if err = b.Activate(now); err == nil && b.Status != prev {
			err = esc.Lock(now)
		}
	case domainbooking.ActionCancel:
		if err = b.Cancel(cmd.Reason, now); err == nil && b.Status != prev {
			err = esc.Refund(now)
		}
	case domainbooking.ActionComplete:
		if err = b.Complete(now); err == nil && b.Status != prev {
			if err = esc.Release(now); err == nil {
				err = h.creditOwner(execCtx, unit, b, now)
			}
		}
	case domainbooking.ActionDispute:
		if err = b.RaiseDispute(cmd.Reason, now); err == nil && esc.Stage == domainescrow.StageLocked {
			err = esc.MarkDisputed(now)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Action)
	}
	if err != nil {
		return nil, err
	}

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

	return &TransitionBookingResult{Booking: dto.MapBooking(b), Escrow: dto.MapEscrow(esc)}, nil
}

// creditOwner moves the released rental proceeds (subtotal, not the platform
// fee or deposit) into the owner's wallet.
func (h *TransitionBookingHandler) creditOwner(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, now time.Time) error {
	w, err := unit.Wallets().ByUserID(ctx, b.OwnerID)
	if err != nil {
		if !errors.Is(err, domainwallet.ErrWalletNotFound) {
			return err
		}
		w = domainwallet.New(b.OwnerID, b.Breakdown.Subtotal.Currency)
	}
	if err := w.CreditRelease(uuid.NewString(), b.Breakdown.Subtotal, string(b.ID), now); err != nil {
		return err
	}
	return unit.Wallets().Save(ctx, w)
}

func (h *TransitionBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now().UTC()
}

var _ commands.Handler[TransitionBookingCommand, *TransitionBookingResult] = (*TransitionBookingHandler)(nil)
