// Package availability guards the per-listing reserved ranges. Check and insert
// happen under a lock scoped to one listing and are persisted with a version check,
// so unrelated listings never contend and other processes are detected.
package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wanderlust/internal/app/outbox"
	domainavailability "wanderlust/internal/domain/availability"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
)

const saveAttempts = 3

type Config struct {
	Repository domainavailability.Repository
	Events     *outbox.Recorder
	Logger     *slog.Logger
	Clock      func() time.Time
	Tokens     func() string
}

type Service struct {
	repo   domainavailability.Repository
	events *outbox.Recorder
	logger *slog.Logger
	now    func() time.Time
	tokens func() string
	locks  *listingLocks
}

func New(cfg Config) *Service {
	if cfg.Repository == nil {
		panic("availability: repository required")
	}
	s := &Service{
		repo:   cfg.Repository,
		events: cfg.Events,
		logger: cfg.Logger,
		now:    cfg.Clock,
		tokens: cfg.Tokens,
		locks:  newListingLocks(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tokens == nil {
		s.tokens = uuid.NewString
	}
	return s
}

func (s *Service) IsFree(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (bool, error) {
	if err := dr.Validate(); err != nil {
		return false, err
	}
	rec, err := s.repo.Record(ctx, listingID)
	if err != nil {
		return false, err
	}
	return rec.IsFree(dr), nil
}

// Reserve re-checks the range and inserts it in one step. It fails with a
// Conflict kind error when another hold overlaps.
func (s *Service) Reserve(ctx context.Context, listingID domainlistings.ListingID, dr daterange.DateRange) (domainavailability.ReservationToken, error) {
	if err := dr.Validate(); err != nil {
		return "", err
	}
	token := domainavailability.ReservationToken(s.tokens())

	unlock := s.locks.lock(listingID)
	defer unlock()

	var rec *domainavailability.Record
	err := s.withRetry(ctx, func() error {
		var err error
		rec, err = s.repo.Record(ctx, listingID)
		if err != nil {
			return err
		}
		if err := rec.Reserve(token, dr, s.now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, domainavailability.ErrOverlappingRange) && rec != nil {
			s.events.RecordBestEffort(ctx, rec)
			s.logger.InfoContext(ctx, "overlapping reservation rejected", "listing_id", listingID, "range", dr.String())
		}
		return "", err
	}
	s.events.RecordBestEffort(ctx, rec)
	return token, nil
}

// Release drops the hold. Unknown or already released tokens are not an error.
func (s *Service) Release(ctx context.Context, listingID domainlistings.ListingID, token domainavailability.ReservationToken) error {
	if token == "" {
		return domainavailability.ErrTokenRequired
	}
	unlock := s.locks.lock(listingID)
	defer unlock()

	var rec *domainavailability.Record
	released := false
	err := s.withRetry(ctx, func() error {
		var err error
		rec, err = s.repo.Record(ctx, listingID)
		if err != nil {
			return err
		}
		released = rec.Release(token, s.now())
		if !released {
			return nil
		}
		return s.repo.Save(ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("availability: release %s: %w", token, err)
	}
	if released {
		s.events.RecordBestEffort(ctx, rec)
	}
	return nil
}

// Reserved lists the holds intersecting window, ordered by check-in.
func (s *Service) Reserved(ctx context.Context, listingID domainlistings.ListingID, window daterange.DateRange) ([]daterange.DateRange, error) {
	rec, err := s.repo.Record(ctx, listingID)
	if err != nil {
		return nil, err
	}
	holds := rec.Between(window)
	out := make([]daterange.DateRange, 0, len(holds))
	for _, h := range holds {
		out = append(out, h.Range)
	}
	return out, nil
}

// Accepting reports whether the listing still takes new reservations.
func (s *Service) Accepting(ctx context.Context, listingID domainlistings.ListingID) (bool, error) {
	rec, err := s.repo.Record(ctx, listingID)
	if err != nil {
		return false, err
	}
	return !rec.Closed, nil
}

// Close makes every later Reserve on the listing fail with ErrClosed. Holds that
// already exist are left alone.
func (s *Service) Close(ctx context.Context, listingID domainlistings.ListingID) error {
	return s.update(ctx, listingID, (*domainavailability.Record).Close)
}

// Reopen undoes Close when a listing removal does not go through.
func (s *Service) Reopen(ctx context.Context, listingID domainlistings.ListingID) error {
	return s.update(ctx, listingID, (*domainavailability.Record).Reopen)
}

func (s *Service) update(ctx context.Context, listingID domainlistings.ListingID, apply func(*domainavailability.Record) bool) error {
	unlock := s.locks.lock(listingID)
	defer unlock()
	return s.withRetry(ctx, func() error {
		rec, err := s.repo.Record(ctx, listingID)
		if err != nil {
			return err
		}
		if !apply(rec) {
			return nil
		}
		return s.repo.Save(ctx, rec)
	})
}

// Drop removes the record of a deleted listing.
func (s *Service) Drop(ctx context.Context, listingID domainlistings.ListingID) error {
	unlock := s.locks.lock(listingID)
	defer unlock()
	return s.repo.Delete(ctx, listingID)
}

// withRetry repeats fn while another process wins the versioned write.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, domainavailability.ErrConcurrentUpdate) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.DebugContext(ctx, "availability record changed concurrently, retrying", "attempt", attempt+1)
	}
	return err
}
