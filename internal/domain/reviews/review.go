package reviews

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/events"
	"wanderlust/internal/domain/shared/failure"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MinCommentLength = 10
	MaxCommentLength = 500
)

var (
	ErrNotFound  = fmt.Errorf("reviews: review %w", failure.ErrNotFound)
	ErrForbidden = fmt.Errorf("reviews: %w", failure.ErrForbidden)
	ErrDuplicate = fmt.Errorf("reviews: author already reviewed this listing: %w", failure.ErrDuplicate)
)

type ReviewID string

type Review struct {
	ID         ReviewID
	ListingID  listings.ListingID
	AuthorID   string
	AuthorName string
	Rating     int
	Comment    string
	Approved   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	events.EventRecorder
}

type ListParams struct {
	ApprovedOnly bool
	Limit        int
	Offset       int
}

// Repository stores reviews. Save must reject a second review for the same
// (author, listing) pair with ErrDuplicate.
type Repository interface {
	ByID(ctx context.Context, id ReviewID) (*Review, error)
	ByAuthorAndListing(ctx context.Context, authorID string, listingID listings.ListingID) (*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID, params ListParams) ([]*Review, int, error)
	ListAll(ctx context.Context, params ListParams) ([]*Review, int, error)
	Save(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id ReviewID) error
	DeleteByListing(ctx context.Context, listingID listings.ListingID) ([]*Review, error)
	Count(ctx context.Context) (int, error)
}

type SubmitParams struct {
	ID         ReviewID
	ListingID  listings.ListingID
	AuthorID   string
	AuthorName string
	Rating     int
	Comment    string
	Approved   bool
	CreatedAt  time.Time
}

// Validate checks rating bounds and comment length after trimming.
func (p SubmitParams) Validate() error {
	verr := &failure.ValidationError{}
	if p.Rating < MinRating || p.Rating > MaxRating {
		verr.Add("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	comment := strings.TrimSpace(p.Comment)
	switch n := utf8.RuneCountInString(comment); {
	case n < MinCommentLength:
		verr.Add("comment", fmt.Sprintf("must be at least %d characters", MinCommentLength))
	case n > MaxCommentLength:
		verr.Add("comment", fmt.Sprintf("must be at most %d characters", MaxCommentLength))
	}
	if strings.TrimSpace(p.AuthorID) == "" {
		verr.Add("author_id", "is required")
	}
	return verr.OrNil()
}

func Submit(params SubmitParams) (*Review, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	review := &Review{
		ID:         params.ID,
		ListingID:  params.ListingID,
		AuthorID:   params.AuthorID,
		AuthorName: strings.TrimSpace(params.AuthorName),
		Rating:     params.Rating,
		Comment:    strings.TrimSpace(params.Comment),
		Approved:   params.Approved,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, ListingID: review.ListingID, AuthorID: review.AuthorID, Rating: review.Rating, At: now})
	return review, nil
}

func (r *Review) CanDelete(requesterID string, isAdmin bool) bool {
	return isAdmin || (requesterID != "" && requesterID == r.AuthorID)
}

// Moderate sets the approved flag and reports whether it changed.
func (r *Review) Moderate(approved bool, now time.Time) bool {
	if r.Approved == approved {
		return false
	}
	r.Approved = approved
	r.UpdatedAt = now.UTC()
	r.Record(ReviewModerated{ReviewID: r.ID, ListingID: r.ListingID, Approved: approved, At: r.UpdatedAt})
	return true
}

func (r *Review) MarkDeleted(by string, now time.Time) {
	r.Record(ReviewDeleted{ReviewID: r.ID, ListingID: r.ListingID, DeletedBy: by, At: now.UTC()})
}

// DisplayName falls back to a placeholder once the author account is gone.
func (r *Review) DisplayName() string {
	if r.AuthorName != "" {
		return r.AuthorName
	}
	return "former guest"
}

func (r *Review) Clone() *Review {
	if r == nil {
		return nil
	}
	out := *r
	out.EventRecorder = events.EventRecorder{}
	return &out
}
