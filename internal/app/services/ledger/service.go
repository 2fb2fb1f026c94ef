// Package ledger owns the booking lifecycle. Ranges are reserved through the
// availability service before a booking is written, and released again on every
// path that leaves no active booking behind.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/uow"
	domainavailability "wanderlust/internal/domain/availability"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/pricing"
	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/failure"
)

// Reservations is the part of the availability service the ledger needs.
type Reservations interface {
	Reserve(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (domainavailability.ReservationToken, error)
	Release(ctx context.Context, listingID domainlistings.ListingID, token domainavailability.ReservationToken) error
	Accepting(ctx context.Context, listingID domainlistings.ListingID) (bool, error)
}

type Config struct {
	Units        uow.UoWFactory
	Reservations Reservations
	Events       *outbox.Recorder
	Logger       *slog.Logger
	Clock        func() time.Time
	IDs          func() string
}

type Service struct {
	units        uow.UoWFactory
	reservations Reservations
	events       *outbox.Recorder
	logger       *slog.Logger
	now          func() time.Time
	ids          func() string
}

func New(cfg Config) *Service {
	if cfg.Units == nil || cfg.Reservations == nil {
		panic("ledger: units and reservations required")
	}
	s := &Service{
		units:        cfg.Units,
		reservations: cfg.Reservations,
		events:       cfg.Events,
		logger:       cfg.Logger,
		now:          cfg.Clock,
		ids:          cfg.IDs,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = uuid.NewString
	}
	return s
}

type RequestParams struct {
	ListingID domainlistings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
}

// Request reserves the range and stores a pending booking holding the token.
func (s *Service) Request(ctx context.Context, params RequestParams) (*domainbooking.Booking, error) {
	now := s.now()
	if err := domainbooking.ValidateStay(params.Range, now); err != nil {
		return nil, err
	}
	if params.Guests <= 0 {
		return nil, failure.NewValidation("guests", "must be a positive integer")
	}

	var listing *domainlistings.Listing
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		listing, err = unit.Listings().ByID(ctx, params.ListingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !listing.Bookable() {
		return nil, domainlistings.ErrNotBookable
	}
	if listing.MaxGuests > 0 && params.Guests > listing.MaxGuests {
		return nil, failure.NewValidation("guests", fmt.Sprintf("must not exceed listing capacity of %d", listing.MaxGuests))
	}
	quote, err := pricing.QuoteStay(listing.Price, params.Range)
	if err != nil {
		return nil, err
	}

	token, err := s.reservations.Reserve(ctx, listing.ID, params.Range)
	if err != nil {
		switch {
		case errors.Is(err, domainavailability.ErrClosed):
			return nil, fmt.Errorf("%w: listing is being removed", domainbooking.ErrUnavailable)
		case errors.Is(err, failure.ErrConflict):
			return nil, fmt.Errorf("%w: %s", domainbooking.ErrUnavailable, params.Range)
		}
		return nil, err
	}

	var booking *domainbooking.Booking
	err = uow.Run(ctx, s.units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		booking, err = domainbooking.NewBooking(domainbooking.CreateParams{
			ID:        domainbooking.BookingID(s.ids()),
			Listing:   listing,
			GuestID:   params.GuestID,
			Range:     params.Range,
			Guests:    params.Guests,
			Price:     quote,
			Token:     token,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return err
		}
		return s.events.Record(ctx, booking)
	})
	if err != nil {
		s.compensate(ctx, listing.ID, token, err)
		return nil, err
	}
	if err := s.withdrawIfRemoved(ctx, booking); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "booking requested", "booking_id", booking.ID, "listing_id", listing.ID, "range", params.Range.String(), "total", booking.Price.Total.String())
	return booking, nil
}

// compensate releases a token whose booking was never stored.
func (s *Service) compensate(ctx context.Context, listingID domainlistings.ListingID, token domainavailability.ReservationToken, cause error) {
	if err := s.reservations.Release(context.WithoutCancel(ctx), listingID, token); err != nil {
		s.logger.ErrorContext(ctx, "reservation left orphaned", "listing_id", listingID, "token", token, "cause", cause, "error", err)
		return
	}
	s.logger.WarnContext(ctx, "reservation released after failed booking", "listing_id", listingID, "cause", cause)
}

// withdrawIfRemoved cancels a booking stored while its listing was being removed.
// Removal closes the availability record before it cancels bookings and deletes
// the listing before it drops the record, so one of the two checks sees it.
func (s *Service) withdrawIfRemoved(ctx context.Context, booking *domainbooking.Booking) error {
	accepting, err := s.reservations.Accepting(ctx, booking.ListingID)
	if err == nil && accepting {
		err = uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
			_, err := unit.Listings().ByID(ctx, booking.ListingID)
			return err
		})
		if err == nil {
			return nil
		}
	}
	if err != nil && !errors.Is(err, failure.ErrNotFound) {
		s.logger.WarnContext(ctx, "listing state not checked after booking", "booking_id", booking.ID, "error", err)
		return nil
	}
	if _, err := s.Cancel(context.WithoutCancel(ctx), booking.ID, policies.System, "listing removed"); err != nil && !errors.Is(err, failure.ErrInvalidState) {
		s.logger.ErrorContext(ctx, "booking on removed listing not withdrawn", "booking_id", booking.ID, "error", err)
	}
	return fmt.Errorf("%w: listing is being removed", domainbooking.ErrUnavailable)
}

func (s *Service) Get(ctx context.Context, id domainbooking.BookingID, actor policies.Actor) (*domainbooking.Booking, error) {
	var booking *domainbooking.Booking
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		booking, err = unit.Bookings().ByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !booking.CanView(actor.ID, actor.IsAdmin) {
		return nil, domainbooking.ErrNotFound
	}
	return booking, nil
}

// Confirm is the post-payment step. Only the listing owner, admins and the system may confirm.
func (s *Service) Confirm(ctx context.Context, id domainbooking.BookingID, actor policies.Actor) (*domainbooking.Booking, error) {
	return s.transition(ctx, id, func(b *domainbooking.Booking) error {
		if !actor.IsAdmin && actor.ID != b.OwnerID {
			if actor.ID == b.GuestID {
				return domainbooking.ErrForbidden
			}
			return domainbooking.ErrNotFound
		}
		return b.Confirm(s.now())
	})
}

// Cancel moves the booking to cancelled and releases its range. Cancelling an
// already cancelled booking still retries the release before reporting InvalidState.
func (s *Service) Cancel(ctx context.Context, id domainbooking.BookingID, actor policies.Actor, reason string) (*domainbooking.Booking, error) {
	booking, err := s.transition(ctx, id, func(b *domainbooking.Booking) error {
		if err := b.Cancel(actor.ID, actor.IsAdmin, reason, s.now()); err != nil {
			if errors.Is(err, domainbooking.ErrInvalidState) && b.Status == domainbooking.StatusCancelled {
				if relErr := s.reservations.Release(ctx, b.ListingID, b.Token); relErr != nil {
					return errors.Join(err, relErr)
				}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.reservations.Release(ctx, booking.ListingID, booking.Token); err != nil {
		return booking, fmt.Errorf("ledger: booking %s cancelled, release pending: %w", booking.ID, err)
	}
	s.logger.InfoContext(ctx, "booking cancelled", "booking_id", booking.ID, "by", actor.ID)
	return booking, nil
}

// Complete finishes one confirmed stay whose check-out has passed.
func (s *Service) Complete(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	changed := false
	booking, err := s.transition(ctx, id, func(b *domainbooking.Booking) error {
		var err error
		changed, err = b.Complete(s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.reservations.Release(ctx, booking.ListingID, booking.Token); err != nil {
			s.logger.WarnContext(ctx, "completed booking kept its hold", "booking_id", booking.ID, "error", err)
		}
	}
	return booking, nil
}

// CompleteDue is the periodic sweep. It is safe to run concurrently and repeatedly.
func (s *Service) CompleteDue(ctx context.Context) (int, error) {
	var due []*domainbooking.Booking
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		due, err = unit.Bookings().ListDue(ctx, s.now())
		return err
	})
	if err != nil {
		return 0, err
	}
	completed := 0
	var errs []error
	for _, b := range due {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, err := s.Complete(ctx, b.ID)
		switch {
		case err == nil:
			completed++
		case errors.Is(err, failure.ErrInvalidState), errors.Is(err, domainbooking.ErrConcurrentUpdate):
			// changed under us; the next sweep sees the new state
		default:
			errs = append(errs, fmt.Errorf("complete %s: %w", b.ID, err))
		}
	}
	if completed > 0 {
		s.logger.InfoContext(ctx, "completed due bookings", "count", completed)
	}
	return completed, errors.Join(errs...)
}

func (s *Service) ListForGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().ListByGuest(ctx, guestID)
		return err
	})
	return out, err
}

// ListForListing is limited to the listing owner and admins.
func (s *Service) ListForListing(ctx context.Context, listingID domainlistings.ListingID, actor policies.Actor) ([]*domainbooking.Booking, error) {
	var out []*domainbooking.Booking
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.CanManage(actor.ID, actor.IsAdmin) {
			return domainlistings.ErrForbidden
		}
		out, err = unit.Bookings().ListByListing(ctx, listingID)
		return err
	})
	return out, err
}

// CancelForListing cancels every active booking of a listing that is going away.
func (s *Service) CancelForListing(ctx context.Context, listingID domainlistings.ListingID, actor policies.Actor) (int, error) {
	var bookings []*domainbooking.Booking
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		bookings, err = unit.Bookings().ListByListing(ctx, listingID)
		return err
	})
	if err != nil {
		return 0, err
	}
	cancelled := 0
	var errs []error
	for _, b := range bookings {
		if !b.Status.Holds() {
			continue
		}
		if _, err := s.Cancel(ctx, b.ID, actor, "listing removed"); err != nil {
			errs = append(errs, err)
			continue
		}
		cancelled++
	}
	return cancelled, errors.Join(errs...)
}

func (s *Service) CountByStatus(ctx context.Context) (map[domainbooking.Status]int, error) {
	var out map[domainbooking.Status]int
	err := uow.Read(ctx, s.units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().CountByStatus(ctx)
		return err
	})
	return out, err
}

func (s *Service) transition(ctx context.Context, id domainbooking.BookingID, apply func(*domainbooking.Booking) error) (*domainbooking.Booking, error) {
	var booking *domainbooking.Booking
	err := uow.Run(ctx, s.units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		booking, err = unit.Bookings().ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(booking); err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return err
		}
		return s.events.Record(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}
