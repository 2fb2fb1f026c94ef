package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	domainlistings "wanderlust/internal/domain/listings"
)

// ListingRepository stores clones so callers never share state with the store.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[domainlistings.ListingID]*domainlistings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return listing.Clone(), nil
}

// Save is optimistic: the stored version must match the caller's copy.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[listing.ID]
	switch {
	case ok && current.Version != listing.Version:
		return domainlistings.ErrConcurrentUpdate
	case !ok && listing.Version != 0:
		return domainlistings.ErrConcurrentUpdate
	}
	listing.Version++
	stored := listing.Clone()
	if ok {
		// counters move through RecordView/ApplyRating and must survive edits
		stored.Views = current.Views
		stored.UniqueViewers = slices.Clone(current.UniqueViewers)
		stored.ReviewIDs = slices.Clone(current.ReviewIDs)
		stored.RatingSum = current.RatingSum
		stored.RatingCount = current.RatingCount
	}
	r.items[listing.ID] = stored
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainlistings.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	opts := params.Normalized()
	r.mu.RLock()
	matches := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		if opts.Matches(listing) {
			matches = append(matches, listing.Clone())
		}
	}
	r.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(matches, func(a, b *domainlistings.Listing) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return opts.Page(matches), nil
}

func (r *ListingRepository) RecordView(ctx context.Context, id domainlistings.ListingID, fingerprint string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.items[id]
	if !ok {
		return false, domainlistings.ErrNotFound
	}
	return listing.RegisterView(fingerprint), nil
}

func (r *ListingRepository) ApplyRating(ctx context.Context, id domainlistings.ListingID, change domainlistings.RatingChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing, ok := r.items[id]
	if !ok {
		return domainlistings.ErrNotFound
	}
	listing.ApplyRating(change)
	return nil
}

func (r *ListingRepository) Stats(ctx context.Context) (domainlistings.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := domainlistings.Stats{ByCategory: make(map[domainlistings.Category]int)}
	for _, listing := range r.items {
		stats.Total++
		if listing.Status == domainlistings.StatusPending {
			stats.Pending++
		}
		if listing.Featured {
			stats.Featured++
		}
		stats.ByCategory[listing.Category]++
	}
	return stats, nil
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
