package policies

import (
	"context"

	"kodesha/internal/domain/shared/money"
	"kodesha/internal/domain/wallet"
)

// PaymentGateway abstracts the mobile-money / card provider. The domain stays
// synchronous; gateway latency is the caller's concern.
type PaymentGateway interface {
	// Collect pulls funds from the user's external account for a top-up.
	Collect(ctx context.Context, method wallet.PaymentMethod, phone string, amount money.Money) (reference string, err error)
	// Payout pushes funds to the user's external account for a withdrawal.
	Payout(ctx context.Context, method wallet.PaymentMethod, phone string, amount money.Money) (reference string, err error)
}
