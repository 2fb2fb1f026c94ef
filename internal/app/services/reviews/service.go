// Package reviews implements the review aggregator: one review per author and
// listing, with the listing's rating kept as a running sum and count.
package reviews

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/uow"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
	"wanderlust/internal/domain/shared/events"
)

type Config struct {
	Units  uow.UoWFactory
	Events *outbox.Recorder
	Logger *slog.Logger
	Clock  func() time.Time
	IDs    func() string
	// ExcludeUnapproved keeps unmoderated reviews out of the average and the
	// public list. Off by default: every review counts.
	ExcludeUnapproved bool
}

type Service struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	ids    func() string
}

func New(cfg Config) *Service {
	if cfg.Units == nil {
		panic("reviews: units required")
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
	return s
}

type SubmitParams struct {
	ListingID  domainlistings.ListingID
	AuthorID   string
	AuthorName string
	Rating     int
	Comment    string
}

func (s *Service) Submit(ctx context.Context, params SubmitParams) (*domainreviews.Review, error) {
	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:         domainreviews.ReviewID(s.ids()),
		ListingID:  params.ListingID,
		AuthorID:   params.AuthorID,
		AuthorName: params.AuthorName,
		Rating:     params.Rating,
		Comment:    params.Comment,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return nil, err
	}
	err = uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		if _, err := unit.Listings().ByID(ctx, params.ListingID); err != nil {
			return err
		}
		existing, err := unit.Reviews().ByAuthorAndListing(ctx, params.AuthorID, params.ListingID)
		switch {
		case err == nil && existing != nil:
			return domainreviews.ErrDuplicate
		case err != nil && !errors.Is(err, domainreviews.ErrNotFound):
			return err
		}
		if err := unit.Reviews().Save(ctx, review); err != nil {
			return err
		}
		if s.counts(review) {
			if err := unit.Listings().ApplyRating(ctx, review.ListingID, ratingChange(review, false)); err != nil {
				return err
			}
		}
		return s.cfg.Events.Record(ctx, review)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "review submitted", "review_id", review.ID, "listing_id", review.ListingID, "rating", review.Rating)
	return review, nil
}

// Delete is allowed to the author and admins.
func (s *Service) Delete(ctx context.Context, id domainreviews.ReviewID, actor policies.Actor) error {
	return uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		review, err := unit.Reviews().ByID(ctx, id)
		if err != nil {
			return err
		}
		if !review.CanDelete(actor.ID, actor.IsAdmin) {
			return domainreviews.ErrForbidden
		}
		if err := unit.Reviews().Delete(ctx, id); err != nil {
			return err
		}
		err = unit.Listings().ApplyRating(ctx, review.ListingID, ratingChange(review, true))
		if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
			return err
		}
		review.MarkDeleted(actor.ID, s.now())
		return s.cfg.Events.Record(ctx, review)
	})
}

// AverageRating is 0 for listings without counted reviews.
func (s *Service) AverageRating(ctx context.Context, listingID domainlistings.ListingID) (float64, error) {
	var avg float64
	err := uow.Read(ctx, s.cfg.Units, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, listingID)
		if err != nil {
			return err
		}
		avg = listing.AverageRating()
		return nil
	})
	return avg, err
}

// Moderate sets the approved flag. With the default configuration the average is
// unaffected; with ExcludeUnapproved the review enters or leaves the aggregate.
func (s *Service) Moderate(ctx context.Context, id domainreviews.ReviewID, approve bool, actor policies.Actor) (*domainreviews.Review, error) {
	if !actor.IsAdmin {
		return nil, domainreviews.ErrForbidden
	}
	var review *domainreviews.Review
	err := uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		review, err = unit.Reviews().ByID(ctx, id)
		if err != nil {
			return err
		}
		if !review.Moderate(approve, s.now()) {
			return nil
		}
		if err := unit.Reviews().Save(ctx, review); err != nil {
			return err
		}
		if s.cfg.ExcludeUnapproved {
			if err := unit.Listings().ApplyRating(ctx, review.ListingID, ratingChange(review, !approve)); err != nil {
				return err
			}
		}
		return s.cfg.Events.Record(ctx, review)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

type Page struct {
	Items   []*domainreviews.Review
	Total   int
	Average float64
}

// ListForListing is newest first.
func (s *Service) ListForListing(ctx context.Context, listingID domainlistings.ListingID, limit, offset int) (Page, error) {
	var page Page
	err := uow.Read(ctx, s.cfg.Units, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, listingID)
		if err != nil {
			return err
		}
		page.Average = listing.AverageRating()
		page.Items, page.Total, err = unit.Reviews().ListByListing(ctx, listingID, domainreviews.ListParams{
			ApprovedOnly: s.cfg.ExcludeUnapproved,
			Limit:        limit,
			Offset:       offset,
		})
		return err
	})
	return page, err
}

// ListAll is the moderation queue: every review, newest first.
func (s *Service) ListAll(ctx context.Context, actor policies.Actor, limit, offset int) (Page, error) {
	if !actor.IsAdmin {
		return Page{}, domainreviews.ErrForbidden
	}
	var page Page
	err := uow.Read(ctx, s.cfg.Units, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		page.Items, page.Total, err = unit.Reviews().ListAll(ctx, domainreviews.ListParams{Limit: limit, Offset: offset})
		return err
	})
	return page, err
}

// DeleteForListing removes every review of a listing that is being deleted.
func (s *Service) DeleteForListing(ctx context.Context, listingID domainlistings.ListingID) (int, error) {
	var removed []*domainreviews.Review
	err := uow.Run(ctx, s.cfg.Units, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		removed, err = unit.Reviews().DeleteByListing(ctx, listingID)
		if err != nil {
			return err
		}
		now := s.now()
		sources := make([]events.Source, 0, len(removed))
		for _, r := range removed {
			r.MarkDeleted(policies.System.ID, now)
			sources = append(sources, r)
		}
		return s.cfg.Events.Record(ctx, sources...)
	})
	return len(removed), err
}

func (s *Service) counts(review *domainreviews.Review) bool {
	return !s.cfg.ExcludeUnapproved || review.Approved
}

func ratingChange(review *domainreviews.Review, removed bool) domainlistings.RatingChange {
	return domainlistings.RatingChange{ReviewID: string(review.ID), Rating: review.Rating, Removed: removed}
}
