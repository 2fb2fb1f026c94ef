package memory

import (
	"context"
	"sync"

	domainavailability "wanderlust/internal/domain/availability"
	domainlistings "wanderlust/internal/domain/listings"
)

// AvailabilityRepository applies the same version check as the Mongo store.
type AvailabilityRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainavailability.Record
}

func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{items: make(map[domainlistings.ListingID]*domainavailability.Record)}
}

func (r *AvailabilityRepository) Record(ctx context.Context, id domainlistings.ListingID) (*domainavailability.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rec, ok := r.items[id]; ok {
		return rec.Clone(), nil
	}
	return domainavailability.NewRecord(id), nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, rec *domainavailability.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[rec.ListingID]
	if (ok && current.Version != rec.Version) || (!ok && rec.Version != 0) {
		return domainavailability.ErrConcurrentUpdate
	}
	rec.Version++
	r.items[rec.ListingID] = rec.Clone()
	return nil
}

func (r *AvailabilityRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
