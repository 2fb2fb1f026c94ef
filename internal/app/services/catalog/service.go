// Package catalog implements listing management: create, edit, delete with
// cascades, search, view counting and admin moderation.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/uow"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/money"
)

const geocodeTimeout = 3 * time.Second

var errLocationChanged = errors.New("catalog: location changed before geocoding finished")

// BookingCanceller cancels the active bookings of a deleted listing.
type BookingCanceller interface {
	CancelForListing(ctx context.Context, listingID domainlistings.ListingID, actor policies.Actor) (int, error)
}

// ReviewPurger deletes the reviews of a deleted listing.
type ReviewPurger interface {
	DeleteForListing(ctx context.Context, listingID domainlistings.ListingID) (int, error)
}

// AvailabilityGate closes a listing to new reservations while it is removed and
// forgets its reserved ranges once it is gone.
type AvailabilityGate interface {
	Close(ctx context.Context, listingID domainlistings.ListingID) error
	Reopen(ctx context.Context, listingID domainlistings.ListingID) error
	Drop(ctx context.Context, listingID domainlistings.ListingID) error
}

type Config struct {
	Units           uow.UoWFactory
	Events          *outbox.Recorder
	Images          policies.ImageStore
	Geocoder        policies.Geocoder
	Views           policies.ViewDeduper
	Bookings        BookingCanceller
	Reviews         ReviewPurger
	Availability    AvailabilityGate
	DefaultCurrency string
	Logger          *slog.Logger
	Clock           func() time.Time
	IDs             func() string
}

type Service struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	ids    func() string
}

func New(cfg Config) *Service {
	if cfg.Units == nil {
		panic("catalog: units required")
	}
	s := &Service{cfg: cfg, logger: cfg.Logger, now: cfg.Clock, ids: cfg.IDs}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = uuid.NewString
	}
	if s.cfg.DefaultCurrency == "" {
		s.cfg.DefaultCurrency = money.DefaultCurrency
	}
	return s
}

// Create stores a pending listing owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID string, fields domainlistings.Fields) (*domainlistings.Listing, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, domainlistings.ErrForbidden
	}
	now := s.now()
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:              domainlistings.ListingID(s.ids()),
		OwnerID:         ownerID,
		Fields:          fields,
		DefaultCurrency: s.cfg.DefaultCurrency,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	if point, found := s.geocode(ctx, listing); found {
		listing.SetGeometry(&point, now)
	}
	err = uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return err
		}
		return s.cfg.Events.Record(ctx, listing)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "listing created", "listing_id", listing.ID, "owner_id", ownerID)
	return listing, nil
}

// Get is read-only; view counting is RecordView.
func (s *Service) Get(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var listing *domainlistings.Listing
	err := uow.Read(ctx, s.cfg.Units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		listing, err = unit.Listings().ByID(ctx, id)
		return err
	})
	return listing, err
}

// Update replaces the editable fields and validates the whole record again.
// A changed location is geocoded after the edit is stored.
func (s *Service) Update(ctx context.Context, id domainlistings.ListingID, actor policies.Actor, fields domainlistings.Fields) (*domainlistings.Listing, error) {
	moved := false
	listing, err := s.mutate(ctx, id, func(listing *domainlistings.Listing, now time.Time) error {
		if !listing.CanManage(actor.ID, actor.IsAdmin) {
			return domainlistings.ErrForbidden
		}
		var err error
		moved, err = listing.Update(fields, now)
		return err
	})
	if err != nil || !moved {
		return listing, err
	}
	point, found := s.geocode(ctx, listing)
	if !found {
		return listing, nil
	}
	located, err := s.mutate(ctx, id, func(l *domainlistings.Listing, now time.Time) error {
		if l.Location != listing.Location || l.Country != listing.Country {
			return errLocationChanged
		}
		l.SetGeometry(&point, now)
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "listing geometry not stored", "listing_id", id, "error", err)
		return listing, nil
	}
	return located, nil
}

// Delete removes the listing, cancels its active bookings and deletes its reviews.
// The listing stops taking reservations first, so no booking can slip in while
// the cascade runs. When a cascade step fails the listing is reopened and kept;
// steps that already ran are not rolled back, and a retry finishes the job.
// The image is removed best-effort afterwards.
func (s *Service) Delete(ctx context.Context, id domainlistings.ListingID, actor policies.Actor) error {
	listing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !listing.CanManage(actor.ID, actor.IsAdmin) {
		return domainlistings.ErrForbidden
	}

	if s.cfg.Availability != nil {
		if err := s.cfg.Availability.Close(ctx, id); err != nil {
			return err
		}
	}
	err = s.cascade(ctx, listing, actor)
	if err == nil {
		err = uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
			if err := unit.Listings().Delete(ctx, id); err != nil {
				return err
			}
			listing.MarkDeleted(s.now())
			return s.cfg.Events.Record(ctx, listing)
		})
	}
	if err != nil {
		s.reopen(ctx, id)
		return err
	}

	if s.cfg.Availability != nil {
		if err := s.cfg.Availability.Drop(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "availability record not dropped", "listing_id", id, "error", err)
		}
	}
	if s.cfg.Images != nil && listing.Image.Filename != "" {
		if err := s.cfg.Images.Delete(context.WithoutCancel(ctx), listing.Image.Filename); err != nil {
			s.logger.WarnContext(ctx, "listing image not deleted", "listing_id", id, "filename", listing.Image.Filename, "error", err)
		}
	}
	s.logger.InfoContext(ctx, "listing deleted", "listing_id", id, "by", actor.ID)
	return nil
}

// cascade purges reviews before cancelling bookings; the purge is the cheaper
// step to repeat when the second one fails.
func (s *Service) cascade(ctx context.Context, listing *domainlistings.Listing, actor policies.Actor) error {
	if s.cfg.Reviews != nil {
		if _, err := s.cfg.Reviews.DeleteForListing(ctx, listing.ID); err != nil {
			return err
		}
	}
	if s.cfg.Bookings == nil {
		return nil
	}
	cascadeActor := actor
	if !cascadeActor.IsAdmin {
		cascadeActor = policies.Actor{ID: listing.OwnerID}
	}
	n, err := s.cfg.Bookings.CancelForListing(ctx, listing.ID, cascadeActor)
	if n > 0 {
		s.logger.InfoContext(ctx, "bookings cancelled for removed listing", "listing_id", listing.ID, "count", n)
	}
	return err
}

func (s *Service) reopen(ctx context.Context, id domainlistings.ListingID) {
	if s.cfg.Availability == nil {
		return
	}
	if err := s.cfg.Availability.Reopen(context.WithoutCancel(ctx), id); err != nil {
		s.logger.ErrorContext(ctx, "listing left closed to reservations", "listing_id", id, "error", err)
	}
}

// Search returns matches newest first.
func (s *Service) Search(ctx context.Context, params domainlistings.SearchParams) ([]*domainlistings.Listing, error) {
	var out []*domainlistings.Listing
	err := uow.Read(ctx, s.cfg.Units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Listings().Search(ctx, params)
		return err
	})
	return out, err
}

type ViewParams struct {
	ListingID   domainlistings.ListingID
	Fingerprint string
	ViewerID    string
}

// RecordView counts a fingerprint once per listing. Owners viewing their own
// listing and repeated fingerprints are no-ops.
func (s *Service) RecordView(ctx context.Context, params ViewParams) (bool, error) {
	fingerprint := strings.TrimSpace(params.Fingerprint)
	listing, err := s.Get(ctx, params.ListingID)
	if err != nil {
		return false, err
	}
	if fingerprint == "" || (params.ViewerID != "" && params.ViewerID == listing.OwnerID) {
		return false, nil
	}
	if s.cfg.Views != nil {
		fresh, err := s.cfg.Views.MarkSeen(ctx, string(params.ListingID), fingerprint)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "view dedup cache unavailable", "error", err)
		case !fresh:
			return false, nil
		}
	}
	var counted bool
	err = uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		counted, err = unit.Listings().RecordView(ctx, params.ListingID, fingerprint)
		return err
	})
	return counted, err
}

func (s *Service) SetStatus(ctx context.Context, id domainlistings.ListingID, status domainlistings.Status, actor policies.Actor) (*domainlistings.Listing, error) {
	if !actor.IsAdmin {
		return nil, domainlistings.ErrForbidden
	}
	return s.mutate(ctx, id, func(listing *domainlistings.Listing, now time.Time) error {
		return listing.SetStatus(status, now)
	})
}

func (s *Service) SetFeatured(ctx context.Context, id domainlistings.ListingID, featured bool, actor policies.Actor) (*domainlistings.Listing, error) {
	if !actor.IsAdmin {
		return nil, domainlistings.ErrForbidden
	}
	return s.mutate(ctx, id, func(listing *domainlistings.Listing, now time.Time) error {
		listing.SetFeatured(featured, now)
		return nil
	})
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users    int
	Reviews  int
	Listings domainlistings.Stats
	Bookings map[domainbooking.Status]int
}

func (s *Service) Stats(ctx context.Context, actor policies.Actor) (Stats, error) {
	if !actor.IsAdmin {
		return Stats{}, domainlistings.ErrForbidden
	}
	var out Stats
	err := uow.Read(ctx, s.cfg.Units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		if out.Listings, err = unit.Listings().Stats(ctx); err != nil {
			return err
		}
		if out.Users, err = unit.Users().Count(ctx); err != nil {
			return err
		}
		if out.Bookings, err = unit.Bookings().CountByStatus(ctx); err != nil {
			return err
		}
		out.Reviews, err = unit.Reviews().Count(ctx)
		return err
	})
	return out, err
}

func (s *Service) mutate(ctx context.Context, id domainlistings.ListingID, apply func(*domainlistings.Listing, time.Time) error) (*domainlistings.Listing, error) {
	var listing *domainlistings.Listing
	err := uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		listing, err = unit.Listings().ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(listing, s.now()); err != nil {
			return err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return err
		}
		return s.cfg.Events.Record(ctx, listing)
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// geocode looks the listing up when a geocoder is configured. Failures are logged.
func (s *Service) geocode(ctx context.Context, listing *domainlistings.Listing) (orb.Point, bool) {
	if s.cfg.Geocoder == nil {
		return orb.Point{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	point, found, err := s.cfg.Geocoder.Geocode(ctx, listing.Location, listing.Country)
	if err != nil {
		s.logger.WarnContext(ctx, "geocoding failed", "listing_id", listing.ID, "error", err)
		return orb.Point{}, false
	}
	return point, found
}
