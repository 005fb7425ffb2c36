package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kodesha/internal/domain/shared/money"
)

func TestArithmetic(t *testing.T) {
	sum, err := money.RWF(100).Add(money.RWF(50))
	require.NoError(t, err)
	assert.Equal(t, money.RWF(150), sum)

	diff, err := money.RWF(100).Sub(money.RWF(30))
	require.NoError(t, err)
	assert.Equal(t, money.RWF(70), diff)

	_, err = money.RWF(100).Add(money.Must(50, "USD"))
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestPercentOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{150000, 1000, 15000},
		{13335, 1000, 1334},  // 1333.5 rounds up
		{13334, 1000, 1333},  // 1333.4 rounds down
		{1, 1000, 0},         // 0.1 rounds down
		{5, 1000, 1},         // 0.5 rounds up
		{100, 0, 0},
		{100, -500, 0},
	}
	for _, tc := range cases {
		got := money.RWF(tc.amount).PercentOf(tc.bps)
		assert.Equal(t, tc.want, got.Amount, "amount=%d bps=%d", tc.amount, tc.bps)
	}
}

func TestNewValidatesCurrency(t *testing.T) {
	_, err := money.New(100, "FRANCS")
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)

	m, err := money.New(100, "rwf")
	require.NoError(t, err)
	assert.Equal(t, "RWF", m.Currency)
}
