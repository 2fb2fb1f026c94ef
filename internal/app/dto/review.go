package dto

import (
	"time"

	domainreviews "wanderlust/internal/domain/reviews"
)

// Review represents a public review payload.
type Review struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	Approved   bool      `json:"approved"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items   []Review `json:"items"`
	Total   int      `json:"total"`
	Average float64  `json:"average_rating"`
}

func MapReview(r *domainreviews.Review) Review {
	return Review{
		ID:         string(r.ID),
		ListingID:  string(r.ListingID),
		AuthorID:   r.AuthorID,
		AuthorName: r.DisplayName(),
		Rating:     r.Rating,
		Comment:    r.Comment,
		Approved:   r.Approved,
		CreatedAt:  r.CreatedAt,
	}
}

func MapReviews(items []*domainreviews.Review, total int, average float64) ReviewCollection {
	out := make([]Review, 0, len(items))
	for _, r := range items {
		out = append(out, MapReview(r))
	}
	return ReviewCollection{Items: out, Total: total, Average: average}
}
