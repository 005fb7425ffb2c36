package pricing

import (
	"fmt"
	"math"

	"kodesha/internal/domain/shared/daterange"
	"kodesha/internal/domain/shared/money"
)

// DefaultPlatformFeeRate is the marketplace commission applied when a request
// does not carry an explicit rate. Operators can override it via configuration.
const DefaultPlatformFeeRate = 0.10

type Mode string

const (
	ModeRent Mode = "rent"
	ModeBuy  Mode = "buy"
)

// InvalidRequestError reports a malformed booking request. It is always
// detected before any state is touched, so the caller simply rejects input.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("pricing: invalid request: %s %s", e.Field, e.Reason)
}

// BookingRequest is the immutable input a renter submits. Period is required
// for rentals and ignored for purchases.
type BookingRequest struct {
	ProductID       string
	Mode            Mode
	UnitPrice       money.Money
	Period          daterange.DateRange
	Deposit         money.Money
	PlatformFeeRate float64
}

// PriceBreakdown is derived from a request and never stored apart from the
// inputs that produced it; bookings snapshot it at creation time.
type PriceBreakdown struct {
	Days        int
	Subtotal    money.Money
	PlatformFee money.Money
	Deposit     money.Money
	Total       money.Money
}

// ComputeBreakdown derives the price breakdown for a request. It is pure:
// identical requests always yield identical breakdowns.
func ComputeBreakdown(req BookingRequest) (PriceBreakdown, error) {
	if err := validate(req); err != nil {
		return PriceBreakdown{}, err
	}

	days := 1
	if req.Mode == ModeRent {
		days = req.Period.Days()
	}
	subtotal := req.UnitPrice.Multiply(int64(days))

	rate := req.PlatformFeeRate
	if rate == 0 {
		rate = DefaultPlatformFeeRate
	}
	fee := subtotal.PercentOf(toBasisPoints(rate))

	deposit := req.Deposit
	if deposit.Currency == "" {
		deposit = money.Money{Amount: 0, Currency: subtotal.Currency}
	}

	total, err := subtotal.Add(fee)
	if err != nil {
		return PriceBreakdown{}, err
	}
	total, err = total.Add(deposit)
	if err != nil {
		return PriceBreakdown{}, err
	}

	return PriceBreakdown{
		Days:        days,
		Subtotal:    subtotal,
		PlatformFee: fee,
		Deposit:     deposit,
		Total:       total,
	}, nil
}

func validate(req BookingRequest) error {
	switch req.Mode {
	case ModeRent, ModeBuy:
	default:
		return &InvalidRequestError{Field: "mode", Reason: "must be rent or buy"}
	}
	if req.UnitPrice.Amount <= 0 {
		return &InvalidRequestError{Field: "unit_price", Reason: "must be positive"}
	}
	if req.UnitPrice.Currency == "" {
		return &InvalidRequestError{Field: "unit_price", Reason: "currency required"}
	}
	if req.Mode == ModeRent {
		if err := req.Period.Validate(); err != nil {
			return &InvalidRequestError{Field: "period", Reason: "rental requires a valid date range"}
		}
	}
	if req.Deposit.IsNegative() {
		return &InvalidRequestError{Field: "deposit", Reason: "must not be negative"}
	}
	if req.Deposit.Currency != "" && req.Deposit.Currency != req.UnitPrice.Currency {
		return &InvalidRequestError{Field: "deposit", Reason: "currency mismatch"}
	}
	if req.PlatformFeeRate < 0 || req.PlatformFeeRate > 1 {
		return &InvalidRequestError{Field: "platform_fee_rate", Reason: "must be within [0,1]"}
	}
	return nil
}

// toBasisPoints converts a fractional rate once so the fee itself is computed
// in integers; round-half-up happens in money.PercentOf.
func toBasisPoints(rate float64) int64 {
	return int64(math.Round(rate * 10000))
}
