package booking

import (
	"context"

	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/queries"
	"kodesha/internal/app/uow"
	domainbooking "kodesha/internal/domain/booking"
)

const (
	getBookingKey   = "booking.get"
	listBookingsKey = "booking.list"
	getEscrowKey    = "booking.escrow.get"
)

type GetBookingQuery struct {
	BookingID string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.Factory
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingView, error) {
	unit, execCtx, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, true)
	if err != nil {
		return dto.BookingView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.BookingView{}, err
	}
	return dto.MapBooking(b), nil
}

type ListBookingsQuery struct {
	Status   string
	RenterID string
	OwnerID  string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.Factory
}

func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	unit, execCtx, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, true)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().List(execCtx, domainbooking.ListFilter{
		Status:   domainbooking.Status(q.Status),
		RenterID: q.RenterID,
		OwnerID:  q.OwnerID,
	})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	out := dto.BookingCollection{Items: make([]dto.BookingView, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, dto.MapBooking(b))
	}
	return out, nil
}

type GetEscrowQuery struct {
	BookingID string
}

func (q GetEscrowQuery) Key() string { return getEscrowKey }

type GetEscrowHandler struct {
	UoWFactory uow.Factory
}

func (h *GetEscrowHandler) Handle(ctx context.Context, q GetEscrowQuery) (dto.EscrowView, error) {
	unit, execCtx, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, true)
	if err != nil {
		return dto.EscrowView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	rec, err := unit.Escrow().ByBookingID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.EscrowView{}, err
	}
	return dto.MapEscrow(rec), nil
}

var (
	_ queries.Handler[GetBookingQuery, dto.BookingView]         = (*GetBookingHandler)(nil)
	_ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
	_ queries.Handler[GetEscrowQuery, dto.EscrowView]           = (*GetEscrowHandler)(nil)
)
