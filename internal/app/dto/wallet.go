package dto

import (
	"time"

	domainwallet "kodesha/internal/domain/wallet"
)

type WalletEntryDTO struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Amount    MoneyDTO  `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	At        time.Time `json:"at"`
}

type WalletView struct {
	UserID  string           `json:"user_id"`
	Balance MoneyDTO         `json:"balance"`
	Entries []WalletEntryDTO `json:"entries"`
}

func MapWallet(w *domainwallet.Wallet) WalletView {
	view := WalletView{
		UserID:  w.UserID,
		Balance: MapMoney(w.Balance),
		Entries: make([]WalletEntryDTO, 0, len(w.Entries)),
	}
	for _, e := range w.Entries {
		view.Entries = append(view.Entries, WalletEntryDTO{
			ID:        e.ID,
			Type:      string(e.Type),
			Amount:    MapMoney(e.Amount),
			Method:    string(e.Method),
			Reference: e.Reference,
			At:        e.At,
		})
	}
	return view
}
