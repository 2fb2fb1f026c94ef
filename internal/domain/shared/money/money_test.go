package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := New(10000, " usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)

	_, err = New(1, "dollars")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = New(-1, "USD")
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestTimesAndAdd(t *testing.T) {
	nightly := Must(100, "USD")
	assert.Equal(t, int64(300), nightly.Times(3).Amount)

	sum, err := nightly.Add(Must(50, "USD"))
	require.NoError(t, err)
	assert.Equal(t, int64(150), sum.Amount)

	_, err = nightly.Add(Must(50, "EUR"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
	assert.Equal(t, "1.50 USD", sum.String())
}
