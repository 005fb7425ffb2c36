package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kodesha/internal/domain/shared/money"
)

var (
	ErrWalletNotFound       = errors.New("wallet: not found")
	ErrInsufficientBalance  = errors.New("wallet: insufficient balance")
	ErrInvalidAmount        = errors.New("wallet: amount must be positive")
	ErrPhoneRequired        = errors.New("wallet: phone number required for mobile money")
	ErrUnknownPaymentMethod = errors.New("wallet: unknown payment method")
)

// BelowMinimumError carries the configured floor that was not met.
type BelowMinimumError struct {
	Op      string
	Minimum money.Money
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("wallet: %s amount below minimum of %s", e.Op, e.Minimum)
}

type PaymentMethod string

const (
	MethodMoMo   PaymentMethod = "momo"
	MethodAirtel PaymentMethod = "airtel"
	MethodBank   PaymentMethod = "bank"
	MethodCard   PaymentMethod = "card"
)

func ParseMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case MethodMoMo:
		return MethodMoMo, nil
	case MethodAirtel:
		return MethodAirtel, nil
	case MethodBank:
		return MethodBank, nil
	case MethodCard:
		return MethodCard, nil
	default:
		return "", ErrUnknownPaymentMethod
	}
}

type EntryType string

const (
	EntryTopUp      EntryType = "topup"
	EntryWithdrawal EntryType = "withdrawal"
	EntryRental     EntryType = "rental"
	EntryRefund     EntryType = "refund"
)

// Entry is one row of the wallet statement.
type Entry struct {
	ID        string
	Type      EntryType
	Amount    money.Money
	Method    PaymentMethod
	Reference string
	At        time.Time
}

// Limits come from configuration; the UI used to hardcode them.
type Limits struct {
	MinTopUp    money.Money
	MinWithdraw money.Money
}

// Wallet holds a user's available balance in RWF. Escrowed funds are tracked
// separately by the escrow ledger and never appear here until released.
type Wallet struct {
	UserID    string
	Balance   money.Money
	Entries   []Entry
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByUserID(ctx context.Context, userID string) (*Wallet, error)
	Save(ctx context.Context, w *Wallet) error
}

func New(userID string, currency string) *Wallet {
	if currency == "" {
		currency = money.DefaultCurrency
	}
	return &Wallet{
		UserID:  userID,
		Balance: money.Money{Amount: 0, Currency: currency},
	}
}

// TopUp credits the wallet after the gateway collected the funds.
func (w *Wallet) TopUp(entryID string, amount money.Money, method PaymentMethod, limits Limits, now time.Time) error {
	if amount.Amount <= 0 {
		return ErrInvalidAmount
	}
	if limits.MinTopUp.Amount > 0 && amount.Amount < limits.MinTopUp.Amount {
		return &BelowMinimumError{Op: "top-up", Minimum: limits.MinTopUp}
	}
	balance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}
	w.Balance = balance
	w.append(Entry{ID: entryID, Type: EntryTopUp, Amount: amount, Method: method, At: now.UTC()})
	return nil
}

// Withdraw debits the wallet before the gateway pays the user out.
func (w *Wallet) Withdraw(entryID string, amount money.Money, method PaymentMethod, limits Limits, now time.Time) error {
	if amount.Amount <= 0 {
		return ErrInvalidAmount
	}
	if limits.MinWithdraw.Amount > 0 && amount.Amount < limits.MinWithdraw.Amount {
		return &BelowMinimumError{Op: "withdraw", Minimum: limits.MinWithdraw}
	}
	if amount.Amount > w.Balance.Amount {
		return ErrInsufficientBalance
	}
	balance, err := w.Balance.Sub(amount)
	if err != nil {
		return err
	}
	w.Balance = balance
	w.append(Entry{ID: entryID, Type: EntryWithdrawal, Amount: amount, Method: method, At: now.UTC()})
	return nil
}

// CreditRelease adds released escrow funds to the seller's balance.
func (w *Wallet) CreditRelease(entryID string, amount money.Money, bookingRef string, now time.Time) error {
	balance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}
	w.Balance = balance
	w.append(Entry{ID: entryID, Type: EntryRental, Amount: amount, Reference: bookingRef, At: now.UTC()})
	return nil
}

func (w *Wallet) append(e Entry) {
	w.Entries = append(w.Entries, e)
	w.UpdatedAt = e.At
}
