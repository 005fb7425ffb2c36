package wallet

import (
	"context"

	"kodesha/internal/app/dto"
	"kodesha/internal/app/handlers/support"
	"kodesha/internal/app/queries"
	"kodesha/internal/app/uow"
)

const getWalletKey = "wallet.get"

type GetWalletQuery struct {
	UserID string
}

func (q GetWalletQuery) Key() string { return getWalletKey }

type GetWalletHandler struct {
	UoWFactory uow.Factory
}

func (h *GetWalletHandler) Handle(ctx context.Context, q GetWalletQuery) (dto.WalletView, error) {
	unit, execCtx, cleanup, err := support.BeginUnit(ctx, h.UoWFactory, true)
	if err != nil {
		return dto.WalletView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	w, err := unit.Wallets().ByUserID(execCtx, q.UserID)
	if err != nil {
		return dto.WalletView{}, err
	}
	return dto.MapWallet(w), nil
}

var _ queries.Handler[GetWalletQuery, dto.WalletView] = (*GetWalletHandler)(nil)
