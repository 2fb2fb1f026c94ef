// Package availability holds the per-listing set of reserved date ranges.
package availability

import (
	"context"
	"fmt"
	"slices"
	"time"

	"wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/events"
	"wanderlust/internal/domain/shared/failure"
)

var (
	ErrOverlappingRange = fmt.Errorf("availability: range overlaps an existing reservation: %w", failure.ErrConflict)
	ErrConcurrentUpdate = fmt.Errorf("availability: record changed concurrently: %w", failure.ErrConflict)
	ErrTokenRequired    = fmt.Errorf("availability: reservation token required: %w", failure.ErrValidation)
	ErrClosed           = fmt.Errorf("availability: listing no longer takes reservations: %w", failure.ErrUnavailable)
)

// ReservationToken identifies one held range so it can be released later.
type ReservationToken string

type Hold struct {
	Token     ReservationToken
	Range     daterange.DateRange
	CreatedAt time.Time
}

// Record is the AvailabilityRecord of one listing. Holds are kept ordered by check-in
// and are pairwise non-overlapping. A closed record refuses new holds but still
// releases existing ones.
type Record struct {
	ListingID listings.ListingID
	Holds     []Hold
	Closed    bool
	Version   int64
	events.EventRecorder
}

// Repository persists records with optimistic concurrency on Version.
// Record returns an empty record for listings that never held a reservation.
type Repository interface {
	Record(ctx context.Context, id listings.ListingID) (*Record, error)
	Save(ctx context.Context, record *Record) error
	Delete(ctx context.Context, id listings.ListingID) error
}

func NewRecord(id listings.ListingID) *Record {
	return &Record{ListingID: id}
}

func (r *Record) IsFree(dr daterange.DateRange) bool {
	for _, h := range r.Holds {
		if h.Range.Overlaps(dr) {
			return false
		}
	}
	return true
}

func (r *Record) Reserve(token ReservationToken, dr daterange.DateRange, now time.Time) error {
	if token == "" {
		return ErrTokenRequired
	}
	if err := dr.Validate(); err != nil {
		return err
	}
	if r.Closed {
		return ErrClosed
	}
	if !r.IsFree(dr) {
		r.Record(OverbookingPrevented{ListingID: r.ListingID, Range: dr, At: now.UTC()})
		return ErrOverlappingRange
	}
	hold := Hold{Token: token, Range: dr, CreatedAt: now.UTC()}
	idx, _ := slices.BinarySearchFunc(r.Holds, dr.CheckIn, func(h Hold, t time.Time) int {
		return h.Range.CheckIn.Compare(t)
	})
	r.Holds = slices.Insert(r.Holds, idx, hold)
	r.Record(RangeReserved{ListingID: r.ListingID, Token: token, Range: dr, At: hold.CreatedAt})
	return nil
}

// Release drops the hold. It reports false when the token is not held any more.
func (r *Record) Release(token ReservationToken, now time.Time) bool {
	idx := slices.IndexFunc(r.Holds, func(h Hold) bool { return h.Token == token })
	if idx < 0 {
		return false
	}
	removed := r.Holds[idx]
	r.Holds = slices.Delete(r.Holds, idx, idx+1)
	r.Record(RangeReleased{ListingID: r.ListingID, Token: token, Range: removed.Range, At: now.UTC()})
	return true
}

// Close stops new reservations. It reports false when the record was already closed.
func (r *Record) Close() bool {
	if r.Closed {
		return false
	}
	r.Closed = true
	return true
}

func (r *Record) Reopen() bool {
	if !r.Closed {
		return false
	}
	r.Closed = false
	return true
}

func (r *Record) Hold(token ReservationToken) (Hold, bool) {
	for _, h := range r.Holds {
		if h.Token == token {
			return h, true
		}
	}
	return Hold{}, false
}

// Between returns holds overlapping the window; a zero window returns all of them.
func (r *Record) Between(window daterange.DateRange) []Hold {
	if window.CheckIn.IsZero() || window.CheckOut.IsZero() {
		return slices.Clone(r.Holds)
	}
	out := make([]Hold, 0, len(r.Holds))
	for _, h := range r.Holds {
		if h.Range.Overlaps(window) {
			out = append(out, h)
		}
	}
	return out
}

// Clone returns a deep copy without pending events.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{ListingID: r.ListingID, Holds: slices.Clone(r.Holds), Closed: r.Closed, Version: r.Version}
}
