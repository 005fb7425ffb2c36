package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingapp "kodesha/internal/app/handlers/booking"
	"kodesha/internal/domain/pricing"
)

func quoteQuery(feeRate float64) bookingapp.QuoteQuery {
	return bookingapp.QuoteQuery{
		ProductID: "prod-1",
		Mode:      "rent",
		UnitPrice: 50000,
		StartDate: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 12, 0, 0, 0, 0, time.UTC),
		FeeRate:   feeRate,
	}
}

func TestQuoteFeeRate(t *testing.T) {
	h := &bookingapp.QuoteHandler{Currency: "RWF", FeeRate: 0.10}
	ctx := context.Background()

	t.Run("zero falls back to the configured rate", func(t *testing.T) {
		out, err := h.Handle(ctx, quoteQuery(0))
		require.NoError(t, err)
		assert.Equal(t, int64(150000), out.Subtotal.Amount)
		assert.Equal(t, int64(15000), out.PlatformFee.Amount)
	})

	t.Run("explicit rate overrides the configured one", func(t *testing.T) {
		out, err := h.Handle(ctx, quoteQuery(0.20))
		require.NoError(t, err)
		assert.Equal(t, int64(30000), out.PlatformFee.Amount)
	})

	t.Run("negative rate is rejected, not repaired", func(t *testing.T) {
		_, err := h.Handle(ctx, quoteQuery(-0.05))
		var invalid *pricing.InvalidRequestError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "platform_fee_rate", invalid.Field)
	})

	t.Run("rate above one is rejected", func(t *testing.T) {
		_, err := h.Handle(ctx, quoteQuery(1.5))
		var invalid *pricing.InvalidRequestError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "platform_fee_rate", invalid.Field)
	})
}
