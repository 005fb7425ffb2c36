package wallet_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kodesha/internal/domain/shared/money"
	"kodesha/internal/domain/wallet"
)

var (
	testNow    = time.Date(2024, 2, 12, 9, 0, 0, 0, time.UTC)
	testLimits = wallet.Limits{
		MinTopUp:    money.RWF(1000),
		MinWithdraw: money.RWF(5000),
	}
)

func TestParseMethod(t *testing.T) {
	cases := []struct {
		raw  string
		want wallet.PaymentMethod
	}{
		{"momo", wallet.MethodMoMo},
		{"AIRTEL", wallet.MethodAirtel},
		{" bank ", wallet.MethodBank},
		{"card", wallet.MethodCard},
	}
	for _, tc := range cases {
		got, err := wallet.ParseMethod(tc.raw)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := wallet.ParseMethod("cheque")
	assert.ErrorIs(t, err, wallet.ErrUnknownPaymentMethod)
}

func TestTopUp(t *testing.T) {
	w := wallet.New("user-1", "RWF")

	require.NoError(t, w.TopUp("e1", money.RWF(10000), wallet.MethodMoMo, testLimits, testNow))
	assert.Equal(t, money.RWF(10000), w.Balance)
	require.Len(t, w.Entries, 1)
	assert.Equal(t, wallet.EntryTopUp, w.Entries[0].Type)

	t.Run("below minimum", func(t *testing.T) {
		err := w.TopUp("e2", money.RWF(999), wallet.MethodMoMo, testLimits, testNow)
		var minErr *wallet.BelowMinimumError
		require.ErrorAs(t, err, &minErr)
		assert.Equal(t, money.RWF(1000), minErr.Minimum)
		assert.Equal(t, money.RWF(10000), w.Balance, "failed top-up must not change the balance")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		assert.ErrorIs(t, w.TopUp("e3", money.RWF(0), wallet.MethodMoMo, testLimits, testNow), wallet.ErrInvalidAmount)
		assert.ErrorIs(t, w.TopUp("e4", money.RWF(-100), wallet.MethodMoMo, testLimits, testNow), wallet.ErrInvalidAmount)
	})
}

func TestWithdraw(t *testing.T) {
	w := wallet.New("user-1", "RWF")
	require.NoError(t, w.TopUp("e1", money.RWF(20000), wallet.MethodMoMo, testLimits, testNow))

	require.NoError(t, w.Withdraw("e2", money.RWF(5000), wallet.MethodMoMo, testLimits, testNow))
	assert.Equal(t, money.RWF(15000), w.Balance)

	t.Run("below minimum", func(t *testing.T) {
		err := w.Withdraw("e3", money.RWF(4999), wallet.MethodMoMo, testLimits, testNow)
		var minErr *wallet.BelowMinimumError
		require.ErrorAs(t, err, &minErr)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		err := w.Withdraw("e4", money.RWF(100000), wallet.MethodBank, testLimits, testNow)
		assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)
		assert.Equal(t, money.RWF(15000), w.Balance)
	})
}

func TestCreditRelease(t *testing.T) {
	w := wallet.New("owner-1", "RWF")
	require.NoError(t, w.CreditRelease("e1", money.RWF(150000), "bk-1", testNow))
	assert.Equal(t, money.RWF(150000), w.Balance)
	require.Len(t, w.Entries, 1)
	assert.Equal(t, wallet.EntryRental, w.Entries[0].Type)
	assert.Equal(t, "bk-1", w.Entries[0].Reference)
}
