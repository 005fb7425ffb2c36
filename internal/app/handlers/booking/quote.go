package booking

import (
	"context"
	"time"

	"kodesha/internal/app/dto"
	"kodesha/internal/app/queries"
	"kodesha/internal/domain/pricing"
	"kodesha/internal/domain/shared/daterange"
	"kodesha/internal/domain/shared/money"
)

const quoteKey = "booking.quote"

// QuoteQuery asks for a price breakdown without creating anything. It is the
// read-side twin of CreateBookingCommand and shares its validation.
type QuoteQuery struct {
	ProductID string
	Mode      string
	UnitPrice int64
	StartDate time.Time
	EndDate   time.Time
	Deposit   int64
	FeeRate   float64
}

func (q QuoteQuery) Key() string { return quoteKey }

type QuoteHandler struct {
	Currency string
	FeeRate  float64
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (dto.BreakdownDTO, error) {
	req, err := buildRequest(requestInput{
		ProductID: q.ProductID,
		Mode:      q.Mode,
		UnitPrice: q.UnitPrice,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Deposit:   q.Deposit,
		FeeRate:   pickRate(q.FeeRate, h.FeeRate),
		Currency:  h.Currency,
	})
	if err != nil {
		return dto.BreakdownDTO{}, err
	}
	breakdown, err := pricing.ComputeBreakdown(req)
	if err != nil {
		return dto.BreakdownDTO{}, err
	}
	return dto.MapBreakdown(breakdown), nil
}

var _ queries.Handler[QuoteQuery, dto.BreakdownDTO] = (*QuoteHandler)(nil)

type requestInput struct {
	ProductID string
	Mode      string
	UnitPrice int64
	StartDate time.Time
	EndDate   time.Time
	Deposit   int64
	FeeRate   float64
	Currency  string
}

func buildRequest(in requestInput) (pricing.BookingRequest, error) {
	currency := in.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	req := pricing.BookingRequest{
		ProductID:       in.ProductID,
		Mode:            pricing.Mode(in.Mode),
		UnitPrice:       money.Money{Amount: in.UnitPrice, Currency: currency},
		Deposit:         money.Money{Amount: in.Deposit, Currency: currency},
		PlatformFeeRate: in.FeeRate,
	}
	if req.Mode == pricing.ModeRent {
		period, err := daterange.New(in.StartDate, in.EndDate)
		if err != nil {
			return pricing.BookingRequest{}, &pricing.InvalidRequestError{Field: "period", Reason: "rental requires a valid date range"}
		}
		req.Period = period
	}
	return req, nil
}

// pickRate treats zero as "not requested". Out-of-range values, negative
// ones included, pass through so validation rejects them.
func pickRate(requested, configured float64) float64 {
	if requested != 0 {
		return requested
	}
	return configured
}
