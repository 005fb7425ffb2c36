package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/policies"
	"kodesha/internal/app/uow"
	"kodesha/internal/domain/shared/money"
	domainwallet "kodesha/internal/domain/wallet"
)

const topUpKey = "wallet.topup"

type TopUpCommand struct {
	UserID string
	Amount int64
	Method string
	Phone  string
}

func (c TopUpCommand) Key() string { return topUpKey }

type TopUpResult struct {
	Wallet dto.WalletView `json:"wallet"`
}

// TopUpHandler collects funds through the gateway and then credits the
// wallet. Limits come from configuration, not literals.
type TopUpHandler struct {
	UoWFactory     uow.Factory
	Gateway        policies.PaymentGateway
	Limits         domainwallet.Limits
	Currency       string
	GatewayTimeout time.Duration
	Clock          func() time.Time
}

func (h *TopUpHandler) Handle(ctx context.Context, cmd TopUpCommand) (*TopUpResult, error) {
	method, err := domainwallet.ParseMethod(cmd.Method)
	if err != nil {
		return nil, err
	}
	if needsPhone(method) && strings.TrimSpace(cmd.Phone) == "" {
		return nil, domainwallet.ErrPhoneRequired
	}
	amount := money.Money{Amount: cmd.Amount, Currency: h.currency()}
	if amount.Amount <= 0 {
		return nil, domainwallet.ErrInvalidAmount
	}
	if h.Limits.MinTopUp.Amount > 0 && amount.Amount < h.Limits.MinTopUp.Amount {
		return nil, &domainwallet.BelowMinimumError{Op: "top-up", Minimum: h.Limits.MinTopUp}
	}

	// Collect before touching the balance; a failed provider call must not
	// leave phantom credit.
	if _, err := callGateway(ctx, h.GatewayTimeout, func(ctx context.Context) (string, error) {
		return h.Gateway.Collect(ctx, method, cmd.Phone, amount)
	}); err != nil {
		return nil, err
	}

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

	w, err := unit.Wallets().ByUserID(execCtx, cmd.UserID)
	if err != nil {
		if !errors.Is(err, domainwallet.ErrWalletNotFound) {
			return nil, err
		}
		w = domainwallet.New(cmd.UserID, h.currency())
	}
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock()
	}
	if err := w.TopUp(uuid.NewString(), amount, method, h.Limits, now); err != nil {
		return nil, err
	}
	if err := unit.Wallets().Save(execCtx, w); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &TopUpResult{Wallet: dto.MapWallet(w)}, nil
}

func (h *TopUpHandler) currency() string {
	if h.Currency != "" {
		return h.Currency
	}
	return money.DefaultCurrency
}

func needsPhone(method domainwallet.PaymentMethod) bool {
	return method == domainwallet.MethodMoMo || method == domainwallet.MethodAirtel
}

var _ commands.Handler[TopUpCommand, *TopUpResult] = (*TopUpHandler)(nil)
