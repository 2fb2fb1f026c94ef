package memory

import (
	"context"
	"slices"
	"sync"

	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
)

type reviewKey struct {
	author  string
	listing domainlistings.ListingID
}

// ReviewRepository enforces one review per (author, listing) like a unique index.
type ReviewRepository struct {
	mu       sync.RWMutex
	items    map[domainreviews.ReviewID]*domainreviews.Review
	byAuthor map[reviewKey]domainreviews.ReviewID
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{
		items:    make(map[domainreviews.ReviewID]*domainreviews.Review),
		byAuthor: make(map[reviewKey]domainreviews.ReviewID),
	}
}

func (r *ReviewRepository) ByID(ctx context.Context, id domainreviews.ReviewID) (*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.items[id]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return review.Clone(), nil
}

func (r *ReviewRepository) ByAuthorAndListing(ctx context.Context, authorID string, listingID domainlistings.ListingID) (*domainreviews.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byAuthor[reviewKey{author: authorID, listing: listingID}]
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return r.items[id].Clone(), nil
}

func (r *ReviewRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID, params domainreviews.ListParams) ([]*domainreviews.Review, int, error) {
	return r.list(params, func(review *domainreviews.Review) bool { return review.ListingID == listingID })
}

func (r *ReviewRepository) ListAll(ctx context.Context, params domainreviews.ListParams) ([]*domainreviews.Review, int, error) {
	return r.list(params, func(*domainreviews.Review) bool { return true })
}

func (r *ReviewRepository) list(params domainreviews.ListParams, keep func(*domainreviews.Review) bool) ([]*domainreviews.Review, int, error) {
	r.mu.RLock()
	matches := make([]*domainreviews.Review, 0)
	for _, review := range r.items {
		if params.ApprovedOnly && !review.Approved {
			continue
		}
		if keep(review) {
			matches = append(matches, review.Clone())
		}
	}
	r.mu.RUnlock()
	slices.SortFunc(matches, func(a, b *domainreviews.Review) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	total := len(matches)
	return page(matches, params.Limit, params.Offset), total, nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreviews.Review) error {
	key := reviewKey{author: review.AuthorID, listing: review.ListingID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byAuthor[key]; ok && existing != review.ID {
		return domainreviews.ErrDuplicate
	}
	r.byAuthor[key] = review.ID
	r.items[review.ID] = review.Clone()
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id domainreviews.ReviewID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.items[id]
	if !ok {
		return domainreviews.ErrNotFound
	}
	delete(r.byAuthor, reviewKey{author: review.AuthorID, listing: review.ListingID})
	delete(r.items, id)
	return nil
}

func (r *ReviewRepository) DeleteByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreviews.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []*domainreviews.Review
	for id, review := range r.items {
		if review.ListingID != listingID {
			continue
		}
		removed = append(removed, review.Clone())
		delete(r.byAuthor, reviewKey{author: review.AuthorID, listing: review.ListingID})
		delete(r.items, id)
	}
	return removed, nil
}

func (r *ReviewRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ domainreviews.Repository = (*ReviewRepository)(nil)
