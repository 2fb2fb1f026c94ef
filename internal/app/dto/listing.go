package dto

import (
	"time"

	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

type ImageDTO struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type GeometryDTO struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type Listing struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"owner_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Image         ImageDTO     `json:"image"`
	Price         MoneyDTO     `json:"price"`
	Location      string       `json:"location"`
	Country       string       `json:"country"`
	Category      string       `json:"category"`
	MaxGuests     int          `json:"max_guests,omitempty"`
	Geometry      *GeometryDTO `json:"geometry,omitempty"`
	Status        string       `json:"status"`
	Featured      bool         `json:"featured"`
	Views         int64        `json:"views"`
	UniqueViewers int          `json:"unique_viewers"`
	AverageRating float64      `json:"average_rating"`
	ReviewCount   int64        `json:"review_count"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

type ListingCollection struct {
	Items []Listing `json:"items"`
}

func MapListing(l *domainlistings.Listing) Listing {
	out := Listing{
		ID:            string(l.ID),
		OwnerID:       l.OwnerID,
		Title:         l.Title,
		Description:   l.Description,
		Image:         ImageDTO{URL: l.Image.URL, Filename: l.Image.Filename},
		Price:         MapMoney(l.Price),
		Location:      l.Location,
		Country:       l.Country,
		Category:      string(l.Category),
		MaxGuests:     l.MaxGuests,
		Status:        string(l.Status),
		Featured:      l.Featured,
		Views:         l.Views,
		UniqueViewers: len(l.UniqueViewers),
		AverageRating: l.AverageRating(),
		ReviewCount:   l.RatingCount,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
	if l.Geometry != nil {
		// GeoJSON order: longitude first.
		out.Geometry = &GeometryDTO{Type: "Point", Coordinates: [2]float64{l.Geometry.Lon(), l.Geometry.Lat()}}
	}
	return out
}

func MapListings(items []*domainlistings.Listing) ListingCollection {
	out := make([]Listing, 0, len(items))
	for _, l := range items {
		out = append(out, MapListing(l))
	}
	return ListingCollection{Items: out}
}
