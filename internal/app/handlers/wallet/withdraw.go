package wallet

import (
	"context"
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

const withdrawKey = "wallet.withdraw"

type WithdrawCommand struct {
	UserID string
	Amount int64
	Method string
	Phone  string
}

func (c WithdrawCommand) Key() string { return withdrawKey }

type WithdrawResult struct {
	Wallet dto.WalletView `json:"wallet"`
}

// WithdrawHandler debits the wallet first and only then pays out, so a user
// cannot double-spend a slow gateway call.
type WithdrawHandler struct {
	UoWFactory     uow.Factory
	Gateway        policies.PaymentGateway
	Limits         domainwallet.Limits
	Currency       string
	GatewayTimeout time.Duration
	Clock          func() time.Time
}

func (h *WithdrawHandler) Handle(ctx context.Context, cmd WithdrawCommand) (*WithdrawResult, error) {
	method, err := domainwallet.ParseMethod(cmd.Method)
	if err != nil {
		return nil, err
	}
	if needsPhone(method) && strings.TrimSpace(cmd.Phone) == "" {
		return nil, domainwallet.ErrPhoneRequired
	}
	amount := money.Money{Amount: cmd.Amount, Currency: h.currency()}

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
		return nil, err
	}
	now := time.Now().UTC()
	if h.Clock != nil {
		now = h.Clock()
	}
	if err := w.Withdraw(uuid.NewString(), amount, method, h.Limits, now); err != nil {
		return nil, err
	}

	if _, err := callGateway(ctx, h.GatewayTimeout, func(ctx context.Context) (string, error) {
		return h.Gateway.Payout(ctx, method, cmd.Phone, amount)
	}); err != nil {
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
	return &WithdrawResult{Wallet: dto.MapWallet(w)}, nil
}

func (h *WithdrawHandler) currency() string {
	if h.Currency != "" {
		return h.Currency
	}
	return money.DefaultCurrency
}

var _ commands.Handler[WithdrawCommand, *WithdrawResult] = (*WithdrawHandler)(nil)
