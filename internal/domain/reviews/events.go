package reviews

import (
	"time"

	"wanderlust/internal/domain/listings"
)

type ReviewSubmitted struct {
	ReviewID  ReviewID           `json:"review_id"`
	ListingID listings.ListingID `json:"listing_id"`
	AuthorID  string             `json:"author_id"`
	Rating    int                `json:"rating"`
	At        time.Time          `json:"at"`
}

func (e ReviewSubmitted) EventName() string     { return "review.submitted" }
func (e ReviewSubmitted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewSubmitted) OccurredAt() time.Time { return e.At }

type ReviewModerated struct {
	ReviewID  ReviewID           `json:"review_id"`
	ListingID listings.ListingID `json:"listing_id"`
	Approved  bool               `json:"approved"`
	At        time.Time          `json:"at"`
}

func (e ReviewModerated) EventName() string     { return "review.moderated" }
func (e ReviewModerated) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewModerated) OccurredAt() time.Time { return e.At }

type ReviewDeleted struct {
	ReviewID  ReviewID           `json:"review_id"`
	ListingID listings.ListingID `json:"listing_id"`
	DeletedBy string             `json:"deleted_by"`
	At        time.Time          `json:"at"`
}

func (e ReviewDeleted) EventName() string     { return "review.deleted" }
func (e ReviewDeleted) AggregateID() string   { return string(e.ReviewID) }
func (e ReviewDeleted) OccurredAt() time.Time { return e.At }
