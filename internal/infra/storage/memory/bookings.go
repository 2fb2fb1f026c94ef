package memory

import (
	"context"
	"sync"
	"time"

	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
)

type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return b.Clone(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[b.ID]
	if (ok && current.Version != b.Version) || (!ok && b.Version != 0) {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version++
	r.items[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }), nil
}

func (r *BookingRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.ListingID == listingID }), nil
}

func (r *BookingRepository) ListDue(ctx context.Context, day time.Time) ([]*domainbooking.Booking, error) {
	cutoff := daterange.Day(day)
	return r.filter(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusConfirmed && !b.Range.CheckOut.After(cutoff)
	}), nil
}

func (r *BookingRepository) CountByStatus(ctx context.Context) (map[domainbooking.Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domainbooking.Status]int, len(domainbooking.Statuses))
	for _, b := range r.items {
		out[b.Status]++
	}
	return out, nil
}

func (r *BookingRepository) filter(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	r.mu.RUnlock()
	domainbooking.SortNewestFirst(out)
	return out
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
