// Package pricing computes stay totals from a nightly rate.
package pricing

import (
	"fmt"

	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/domain/shared/money"
)

var ErrNoNights = fmt.Errorf("pricing: stay must cover at least one night: %w", failure.ErrValidation)

// Quote is the price snapshot stored with a booking.
type Quote struct {
	Nightly money.Money `json:"nightly"`
	Nights  int         `json:"nights"`
	Total   money.Money `json:"total"`
}

// QuoteStay returns nightly * nights for the range.
func QuoteStay(nightly money.Money, dr daterange.DateRange) (Quote, error) {
	nights := dr.Nights()
	if nights < 1 {
		return Quote{}, ErrNoNights
	}
	if nightly.Amount < 0 {
		return Quote{}, money.ErrNegativeAmount
	}
	return Quote{Nightly: nightly, Nights: nights, Total: nightly.Times(nights)}, nil
}
