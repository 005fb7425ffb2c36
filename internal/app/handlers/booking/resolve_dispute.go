package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
)

const resolveDisputeKey = "booking.resolve_dispute"

var ErrUnknownResolution = errors.New("booking: unknown dispute resolution")

// Resolution outcomes an admin may pick for a disputed escrow.
const (
	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
)

// ResolveDisputeCommand settles a frozen escrow in favor of one party. Who
// has the authority to call it is the outer surface's concern.
type ResolveDisputeCommand struct {
	BookingID  string
	Resolution string
	AdminID    string
}

func (c ResolveDisputeCommand) Key() string { return resolveDisputeKey }

type ResolveDisputeResult struct {
	Escrow dto.EscrowView `json:"escrow"`
}

type ResolveDisputeHandler struct {
	UoWFactory uow.Factory
	Clock      func() time.Time
}

func (h *ResolveDisputeHandler) Handle(ctx context.Context, cmd ResolveDisputeCommand) (*ResolveDisputeResult, error) {
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

	esc, err := unit.Escrow().ByBookingID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock()
	}
	switch cmd.Resolution {
	case ResolutionRelease:
		err = esc.ResolveRelease(now)
	case ResolutionRefund:
		err = esc.Refund(now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownResolution, cmd.Resolution)
	}
	if err != nil {
		return nil, err
	}
	if err := unit.Escrow().Save(execCtx, esc); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &ResolveDisputeResult{Escrow: dto.MapEscrow(esc)}, nil
}

var _ commands.Handler[ResolveDisputeCommand, *ResolveDisputeResult] = (*ResolveDisputeHandler)(nil)
