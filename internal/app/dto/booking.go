package dto

import (
	"time"

	domainbooking "wanderlust/internal/domain/booking"
)

type Booking struct {
	ID           string    `json:"id"`
	ListingID    string    `json:"listing_id"`
	ListingTitle string    `json:"listing_title"`
	GuestID      string    `json:"guest_id"`
	CheckIn      string    `json:"check_in"`
	CheckOut     string    `json:"check_out"`
	Nights       int       `json:"nights"`
	Guests       int       `json:"guests"`
	Nightly      MoneyDTO  `json:"nightly"`
	Total        MoneyDTO  `json:"total"`
	Status       string    `json:"status"`
	CancelledBy  string    `json:"cancelled_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BookingCollection struct {
	Items []Booking `json:"items"`
}

const dayLayout = "2006-01-02"

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:           string(b.ID),
		ListingID:    string(b.ListingID),
		ListingTitle: b.ListingTitle,
		GuestID:      b.GuestID,
		CheckIn:      b.Range.CheckIn.Format(dayLayout),
		CheckOut:     b.Range.CheckOut.Format(dayLayout),
		Nights:       b.Price.Nights,
		Guests:       b.Guests,
		Nightly:      MapMoney(b.Price.Nightly),
		Total:        MapMoney(b.Price.Total),
		Status:       string(b.Status),
		CancelledBy:  b.CancelledBy,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return BookingCollection{Items: out}
}
