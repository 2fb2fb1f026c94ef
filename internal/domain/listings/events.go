package listings

import "time"

type ListingCreated struct {
	ListingID ListingID `json:"listing_id"`
	OwnerID   string    `json:"owner_id"`
	Category  Category  `json:"category"`
	At        time.Time `json:"at"`
}

func (e ListingCreated) EventName() string     { return "listing.created" }
func (e ListingCreated) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreated) OccurredAt() time.Time { return e.At }

type ListingUpdated struct {
	ListingID ListingID `json:"listing_id"`
	At        time.Time `json:"at"`
}

func (e ListingUpdated) EventName() string     { return "listing.updated" }
func (e ListingUpdated) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdated) OccurredAt() time.Time { return e.At }

type ListingStatusChanged struct {
	ListingID ListingID `json:"listing_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	At        time.Time `json:"at"`
}

func (e ListingStatusChanged) EventName() string     { return "listing.status_changed" }
func (e ListingStatusChanged) AggregateID() string   { return string(e.ListingID) }
func (e ListingStatusChanged) OccurredAt() time.Time { return e.At }

type ListingFeatured struct {
	ListingID ListingID `json:"listing_id"`
	Featured  bool      `json:"featured"`
	At        time.Time `json:"at"`
}

func (e ListingFeatured) EventName() string     { return "listing.featured" }
func (e ListingFeatured) AggregateID() string   { return string(e.ListingID) }
func (e ListingFeatured) OccurredAt() time.Time { return e.At }

type ListingDeleted struct {
	ListingID ListingID `json:"listing_id"`
	ImageFile string    `json:"image_filename"`
	At        time.Time `json:"at"`
}

func (e ListingDeleted) EventName() string     { return "listing.deleted" }
func (e ListingDeleted) AggregateID() string   { return string(e.ListingID) }
func (e ListingDeleted) OccurredAt() time.Time { return e.At }
