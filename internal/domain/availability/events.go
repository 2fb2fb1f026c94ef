package availability

import (
	"time"

	"wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
)

type RangeReserved struct {
	ListingID listings.ListingID  `json:"listing_id"`
	Token     ReservationToken    `json:"token"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e RangeReserved) EventName() string     { return "availability.reserved" }
func (e RangeReserved) AggregateID() string   { return string(e.ListingID) }
func (e RangeReserved) OccurredAt() time.Time { return e.At }

type RangeReleased struct {
	ListingID listings.ListingID  `json:"listing_id"`
	Token     ReservationToken    `json:"token"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e RangeReleased) EventName() string     { return "availability.released" }
func (e RangeReleased) AggregateID() string   { return string(e.ListingID) }
func (e RangeReleased) OccurredAt() time.Time { return e.At }

type OverbookingPrevented struct {
	ListingID listings.ListingID  `json:"listing_id"`
	Range     daterange.DateRange `json:"range"`
	At        time.Time           `json:"at"`
}

func (e OverbookingPrevented) EventName() string     { return "availability.overbooking_prevented" }
func (e OverbookingPrevented) AggregateID() string   { return string(e.ListingID) }
func (e OverbookingPrevented) OccurredAt() time.Time { return e.At }
