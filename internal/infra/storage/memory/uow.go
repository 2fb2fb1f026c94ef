package memory

import (
	"context"
	"errors"

	"wanderlust/internal/app/uow"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
	domainuser "wanderlust/internal/domain/user"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	ListingsRepo domainlistings.Repository
	BookingsRepo domainbooking.Repository
	ReviewsRepo  domainreviews.Repository
	UsersRepo    domainuser.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a boundary without isolation; each repository write is atomic on its own.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ListingsRepo == nil || f.BookingsRepo == nil || f.ReviewsRepo == nil || f.UsersRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{factory: f}, nil
}

type Unit struct {
	factory Factory
}

func (u *Unit) Listings() domainlistings.Repository { return u.factory.ListingsRepo }
func (u *Unit) Bookings() domainbooking.Repository  { return u.factory.BookingsRepo }
func (u *Unit) Reviews() domainreviews.Repository   { return u.factory.ReviewsRepo }
func (u *Unit) Users() domainuser.Repository        { return u.factory.UsersRepo }

func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }

// Store bundles every in-memory repository for wiring and tests.
type Store struct {
	Listings     *ListingRepository
	Bookings     *BookingRepository
	Reviews      *ReviewRepository
	Users        *UserRepository
	Sessions     *SessionStore
	Availability *AvailabilityRepository
	Outbox       *Outbox
	Idempotency  *IdempotencyStore
}

func NewStore() *Store {
	return &Store{
		Listings:     NewListingRepository(),
		Bookings:     NewBookingRepository(),
		Reviews:      NewReviewRepository(),
		Users:        NewUserRepository(),
		Sessions:     NewSessionStore(),
		Availability: NewAvailabilityRepository(),
		Outbox:       NewOutbox(nil),
		Idempotency:  NewIdempotencyStore(),
	}
}

func (s *Store) Factory() Factory {
	return Factory{ListingsRepo: s.Listings, BookingsRepo: s.Bookings, ReviewsRepo: s.Reviews, UsersRepo: s.Users}
}
