package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/money"
)

func TestQuoteStay(t *testing.T) {
	q, err := QuoteStay(money.Must(100, "USD"), daterange.MustParse("2024-06-01", "2024-06-04"))
	require.NoError(t, err)
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, int64(300), q.Total.Amount)
	assert.Equal(t, "USD", q.Total.Currency)
}

func TestQuoteStayNeedsANight(t *testing.T) {
	_, err := QuoteStay(money.Must(100, "USD"), daterange.DateRange{})
	assert.ErrorIs(t, err, ErrNoNights)
}
