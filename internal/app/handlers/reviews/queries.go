package reviews

import (
	"context"

	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	reviewsvc "wanderlust/internal/app/services/reviews"
	domainlistings "wanderlust/internal/domain/listings"
)

const (
	listListingReviewsKey = "reviews.listing.list"
	listAllReviewsKey     = "reviews.admin.list"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// ListListingReviewsQuery retrieves reviews for a listing, newest first.
type ListListingReviewsQuery struct {
	ListingID string `validate:"required"`
	Limit     int
	Offset    int
}

func (q ListListingReviewsQuery) Key() string { return listListingReviewsKey }

type ListListingReviewsHandler struct {
	Reviews *reviewsvc.Service
}

func (h *ListListingReviewsHandler) Handle(ctx context.Context, q ListListingReviewsQuery) (dto.ReviewCollection, error) {
	page, err := h.Reviews.ListForListing(ctx, domainlistings.ListingID(q.ListingID), normalizeLimit(q.Limit), max(q.Offset, 0))
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	return dto.MapReviews(page.Items, page.Total, page.Average), nil
}

// ListAllReviewsQuery is the moderation queue.
type ListAllReviewsQuery struct {
	Actor  policies.Actor
	Limit  int
	Offset int
}

func (q ListAllReviewsQuery) Key() string               { return listAllReviewsKey }
func (q ListAllReviewsQuery) Requester() policies.Actor { return q.Actor }
func (q ListAllReviewsQuery) AdminOnly()                {}

type ListAllReviewsHandler struct {
	Reviews *reviewsvc.Service
}

func (h *ListAllReviewsHandler) Handle(ctx context.Context, q ListAllReviewsQuery) (dto.ReviewCollection, error) {
	page, err := h.Reviews.ListAll(ctx, q.Actor, normalizeLimit(q.Limit), max(q.Offset, 0))
	if err != nil {
		return dto.ReviewCollection{}, err
	}
	return dto.MapReviews(page.Items, page.Total, 0), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return min(limit, maxLimit)
}

func RegisterQueries(bus *queries.InMemoryBus, svc *reviewsvc.Service) {
	queries.RegisterHandler(bus, listListingReviewsKey, &ListListingReviewsHandler{Reviews: svc})
	queries.RegisterHandler(bus, listAllReviewsKey, &ListAllReviewsHandler{Reviews: svc})
}
