package dto

import "wanderlust/internal/domain/shared/daterange"

type ReservedRange struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

// Availability lists the reserved ranges intersecting a window; holders stay private.
type Availability struct {
	ListingID string          `json:"listing_id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Reserved  []ReservedRange `json:"reserved"`
}

func MapAvailability(listingID string, window daterange.DateRange, reserved []daterange.DateRange) Availability {
	out := Availability{
		ListingID: listingID,
		From:      window.CheckIn.Format(dayLayout),
		To:        window.CheckOut.Format(dayLayout),
		Reserved:  make([]ReservedRange, 0, len(reserved)),
	}
	for _, dr := range reserved {
		out.Reserved = append(out.Reserved, ReservedRange{
			CheckIn:  dr.CheckIn.Format(dayLayout),
			CheckOut: dr.CheckOut.Format(dayLayout),
		})
	}
	return out
}
