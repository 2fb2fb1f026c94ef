package booking

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"wanderlust/internal/domain/availability"
	"wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/pricing"
	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/events"
	"wanderlust/internal/domain/shared/failure"
)

var (
	ErrNotFound         = fmt.Errorf("booking: booking %w", failure.ErrNotFound)
	ErrForbidden        = fmt.Errorf("booking: %w", failure.ErrForbidden)
	ErrInvalidState     = fmt.Errorf("booking: transition not allowed: %w", failure.ErrInvalidState)
	ErrNotDue           = fmt.Errorf("booking: stay has not ended yet: %w", failure.ErrInvalidState)
	ErrInvalidRange     = fmt.Errorf("booking: invalid stay dates: %w", failure.ErrValidation)
	ErrCheckInInPast    = fmt.Errorf("booking: check-in date is in the past: %w", failure.ErrValidation)
	ErrUnavailable      = fmt.Errorf("booking: requested dates are %w", failure.ErrUnavailable)
	ErrConcurrentUpdate = fmt.Errorf("booking: concurrent update: %w", failure.ErrConflict)
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var Statuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

// Terminal states have no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Holds reports whether a booking in this state keeps its reservation.
func (s Status) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID           BookingID
	ListingID    listings.ListingID
	ListingTitle string
	OwnerID      string
	GuestID      string
	Range        daterange.DateRange
	Guests       int
	Price        pricing.Quote
	Status       Status
	Token        availability.ReservationToken
	CancelledBy  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Booking, error)
	// ListDue returns confirmed bookings whose check-out is on or before the given day.
	ListDue(ctx context.Context, day time.Time) ([]*Booking, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

type CreateParams struct {
	ID        BookingID
	Listing   *listings.Listing
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	Price     pricing.Quote
	Token     availability.ReservationToken
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	verr := &failure.ValidationError{}
	if strings.TrimSpace(string(params.ID)) == "" {
		verr.Add("id", "is required")
	}
	if params.Listing == nil {
		verr.Add("listing_id", "is required")
	}
	if strings.TrimSpace(params.GuestID) == "" {
		verr.Add("guest_id", "is required")
	}
	if params.Guests <= 0 {
		verr.Add("guests", "must be a positive integer")
	} else if params.Listing != nil && params.Listing.MaxGuests > 0 && params.Guests > params.Listing.MaxGuests {
		verr.Add("guests", fmt.Sprintf("must not exceed listing capacity of %d", params.Listing.MaxGuests))
	}
	if params.Price.Nights < 1 {
		verr.Add("check_out", "stay must cover at least one night")
	}
	if params.Token == "" {
		verr.Add("token", "reservation token is required")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:           params.ID,
		ListingID:    params.Listing.ID,
		ListingTitle: params.Listing.Title,
		OwnerID:      params.Listing.OwnerID,
		GuestID:      params.GuestID,
		Range:        params.Range,
		Guests:       params.Guests,
		Price:        params.Price,
		Status:       StatusPending,
		Token:        params.Token,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.Record(BookingRequested{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, Guests: b.Guests, Total: b.Price.Total, At: now})
	return b, nil
}

// ValidateStay rejects ranges whose check-in day is before today.
func ValidateStay(dr daterange.DateRange, now time.Time) error {
	if err := dr.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	if dr.StartsBefore(now) {
		return ErrCheckInInPast
	}
	return nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidState
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// CanCancel allows the guest, the listing owner and admins.
func (b *Booking) CanCancel(requesterID string, isAdmin bool) bool {
	if isAdmin {
		return true
	}
	return requesterID != "" && (requesterID == b.GuestID || requesterID == b.OwnerID)
}

// CanView allows the same parties as CanCancel.
func (b *Booking) CanView(requesterID string, isAdmin bool) bool {
	return b.CanCancel(requesterID, isAdmin)
}

func (b *Booking) Cancel(requesterID string, isAdmin bool, reason string, now time.Time) error {
	if !b.CanCancel(requesterID, isAdmin) {
		return ErrForbidden
	}
	if b.Status.Terminal() {
		return ErrInvalidState
	}
	b.Status = StatusCancelled
	b.CancelledBy = requesterID
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, CancelledBy: requesterID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// Complete moves a confirmed stay to completed once check-out has passed.
// It reports false without error when the booking is already completed.
func (b *Booking) Complete(now time.Time) (bool, error) {
	switch b.Status {
	case StatusCompleted:
		return false, nil
	case StatusConfirmed:
	default:
		return false, ErrInvalidState
	}
	if !b.Range.EndedBy(now) {
		return false, ErrNotDue
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, At: b.UpdatedAt})
	return true, nil
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.EventRecorder = events.EventRecorder{}
	return &out
}

// SortNewestFirst orders by creation time, most recent first.
func SortNewestFirst(items []*Booking) {
	slices.SortStableFunc(items, func(a, b *Booking) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
