package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"kodesha/internal/domain/shared/money"
	"kodesha/internal/domain/wallet"
)

// PaymentGateway settles instantly and mints sequential references. It backs
// local development and tests where no real provider is reachable.
type PaymentGateway struct {
	seq atomic.Uint64

	// CollectErr and PayoutErr, when set, make the next call fail. Tests use
	// them to simulate provider rejections.
	CollectErr error
	PayoutErr  error
}

func NewPaymentGateway() *PaymentGateway {
	return &PaymentGateway{}
}

func (g *PaymentGateway) Collect(ctx context.Context, method wallet.PaymentMethod, phone string, amount money.Money) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.CollectErr != nil {
		return "", g.CollectErr
	}
	return g.reference("col", method), nil
}

func (g *PaymentGateway) Payout(ctx context.Context, method wallet.PaymentMethod, phone string, amount money.Money) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.PayoutErr != nil {
		return "", g.PayoutErr
	}
	return g.reference("pay", method), nil
}

func (g *PaymentGateway) reference(kind string, method wallet.PaymentMethod) string {
	return fmt.Sprintf("%s-%s-%06d", kind, method, g.seq.Add(1))
}
