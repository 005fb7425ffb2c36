package dto

import (
	"time"

	domainbooking "kodesha/internal/domain/booking"
	domainescrow "kodesha/internal/domain/escrow"
	"kodesha/internal/domain/pricing"
	"kodesha/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type BreakdownDTO struct {
	Days        int      `json:"days"`
	Subtotal    MoneyDTO `json:"subtotal"`
	PlatformFee MoneyDTO `json:"platform_fee"`
	Deposit     MoneyDTO `json:"deposit"`
	Total       MoneyDTO `json:"total"`
}

type BookingView struct {
	ID              string       `json:"id"`
	ProductID       string       `json:"product_id"`
	RenterID        string       `json:"renter_id"`
	OwnerID         string       `json:"owner_id"`
	Mode            string       `json:"mode"`
	StartDate       *time.Time   `json:"start_date,omitempty"`
	EndDate         *time.Time   `json:"end_date,omitempty"`
	Breakdown       BreakdownDTO `json:"breakdown"`
	Status          string       `json:"status"`
	PaymentStatus   string       `json:"payment_status"`
	DeliveryAddress string       `json:"delivery_address,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	CancelReason    string       `json:"cancel_reason,omitempty"`
	Disputed        bool         `json:"disputed"`
	AllowedActions  []string     `json:"allowed_actions"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

type EscrowView struct {
	BookingID string    `json:"booking_id"`
	Amount    MoneyDTO  `json:"amount"`
	Stage     string    `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapBreakdown(b pricing.PriceBreakdown) BreakdownDTO {
	return BreakdownDTO{
		Days:        b.Days,
		Subtotal:    MapMoney(b.Subtotal),
		PlatformFee: MapMoney(b.PlatformFee),
		Deposit:     MapMoney(b.Deposit),
		Total:       MapMoney(b.Total),
	}
}

func MapBooking(b *domainbooking.Booking) BookingView {
	view := BookingView{
		ID:              string(b.ID),
		ProductID:       b.Request.ProductID,
		RenterID:        b.RenterID,
		OwnerID:         b.OwnerID,
		Mode:            string(b.Request.Mode),
		Breakdown:       MapBreakdown(b.Breakdown),
		Status:          string(b.Status),
		PaymentStatus:   string(b.Payment),
		DeliveryAddress: b.DeliveryAddress,
		Notes:           b.Notes,
		CancelReason:    b.CancelReason,
		Disputed:        b.Disputed,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Request.Mode == pricing.ModeRent {
		start := b.Request.Period.Start
		end := b.Request.Period.End
		view.StartDate = &start
		view.EndDate = &end
	}
	for _, action := range domainbooking.AllowedFrom(b.Status) {
		view.AllowedActions = append(view.AllowedActions, string(action))
	}
	return view
}

func MapEscrow(rec *domainescrow.Record) EscrowView {
	return EscrowView{
		BookingID: string(rec.BookingID),
		Amount:    MapMoney(rec.Amount),
		Stage:     string(rec.Stage),
		UpdatedAt: rec.UpdatedAt,
	}
}
