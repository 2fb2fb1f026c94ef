// Package bootstrap assembles services, buses and HTTP handlers from a storage
// backend and optional adapters.
package bootstrap

import (
	"errors"
	"log/slog"
	"time"

	gin "github.com/gin-gonic/gin"

	"wanderlust/internal/app/commands"
	authapp "wanderlust/internal/app/handlers/auth"
	availabilityapp "wanderlust/internal/app/handlers/availability"
	bookingapp "wanderlust/internal/app/handlers/booking"
	listingsapp "wanderlust/internal/app/handlers/listings"
	meapp "wanderlust/internal/app/handlers/me"
	reviewsapp "wanderlust/internal/app/handlers/reviews"
	"wanderlust/internal/app/middleware"
	appoutbox "wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	authsvc "wanderlust/internal/app/services/auth"
	availabilitysvc "wanderlust/internal/app/services/availability"
	"wanderlust/internal/app/services/catalog"
	"wanderlust/internal/app/services/ledger"
	reviewsvc "wanderlust/internal/app/services/reviews"
	"wanderlust/internal/app/uow"
	domainauth "wanderlust/internal/domain/auth"
	domainavailability "wanderlust/internal/domain/availability"
	domainuser "wanderlust/internal/domain/user"
	ginserver "wanderlust/internal/infra/http/gin"
	"wanderlust/internal/infra/security"
	"wanderlust/internal/infra/storage/memory"
)

// Storage is the persistence a deployment provides: the in-memory store or Mongo.
type Storage struct {
	Units        uow.UoWFactory
	Outbox       appoutbox.Outbox
	Availability domainavailability.Repository
	Idempotency  middleware.IdempotencyStore
	Users        domainuser.Repository
	Sessions     domainauth.SessionStore
}

// MemoryStorage exposes an in-memory store as Storage.
func MemoryStorage(store *memory.Store) Storage {
	return Storage{
		Units:        store.Factory(),
		Outbox:       store.Outbox,
		Availability: store.Availability,
		Idempotency:  store.Idempotency,
		Users:        store.Users,
		Sessions:     store.Sessions,
	}
}

type Options struct {
	Storage Storage

	Images   policies.ImageStore
	Geocoder policies.Geocoder
	Views    policies.ViewDeduper

	Passwords authsvc.PasswordHasher
	Tokens    authsvc.TokenGenerator

	SessionTTL               time.Duration
	AdminUsernames           []string
	DefaultCurrency          string
	ExcludeUnapprovedReviews bool

	Logger *slog.Logger
	Clock  func() time.Time
}

type Application struct {
	Commands commands.Bus
	Queries  queries.Bus

	Auth         *authsvc.Service
	Catalog      *catalog.Service
	Ledger       *ledger.Service
	Availability *availabilitysvc.Service
	Reviews      *reviewsvc.Service

	logger *slog.Logger
}

func Build(opts Options) (*Application, error) {
	st := opts.Storage
	if st.Units == nil || st.Outbox == nil || st.Availability == nil || st.Idempotency == nil {
		return nil, errors.New("bootstrap: storage is incomplete")
	}
	if st.Users == nil || st.Sessions == nil {
		return nil, errors.New("bootstrap: user and session storage required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Passwords == nil {
		opts.Passwords = security.BcryptHasher{}
	}
	if opts.Tokens == nil {
		opts.Tokens = security.RandomTokenGenerator{}
	}

	events := &appoutbox.Recorder{Outbox: st.Outbox, Logger: logger}

	availability := availabilitysvc.New(availabilitysvc.Config{
		Repository: st.Availability,
		Events:     events,
		Logger:     logger.With("component", "availability"),
		Clock:      opts.Clock,
	})
	ledgerSvc := ledger.New(ledger.Config{
		Units:        st.Units,
		Reservations: availability,
		Events:       events,
		Logger:       logger.With("component", "ledger"),
		Clock:        opts.Clock,
	})
	reviews := reviewsvc.New(reviewsvc.Config{
		Units:             st.Units,
		Events:            events,
		Logger:            logger.With("component", "reviews"),
		Clock:             opts.Clock,
		ExcludeUnapproved: opts.ExcludeUnapprovedReviews,
	})
	catalogSvc := catalog.New(catalog.Config{
		Units:           st.Units,
		Events:          events,
		Images:          opts.Images,
		Geocoder:        opts.Geocoder,
		Views:           opts.Views,
		Bookings:        ledgerSvc,
		Reviews:         reviews,
		Availability:    availability,
		DefaultCurrency: opts.DefaultCurrency,
		Logger:          logger.With("component", "catalog"),
		Clock:           opts.Clock,
	})
	authService := &authsvc.Service{
		Users:          st.Users,
		Sessions:       st.Sessions,
		Passwords:      opts.Passwords,
		Tokens:         opts.Tokens,
		SessionTTL:     opts.SessionTTL,
		AdminUsernames: opts.AdminUsernames,
		Logger:         logger.With("component", "auth"),
		Clock:          opts.Clock,
	}

	cmdBus := commands.NewInMemoryBus()
	authapp.Register(cmdBus, authService)
	listingsapp.Register(cmdBus, catalogSvc)
	bookingapp.Register(cmdBus, ledgerSvc)
	reviewsapp.Register(cmdBus, reviews)

	queryBus := queries.NewInMemoryBus()
	listingsapp.RegisterQueries(queryBus, catalogSvc)
	bookingapp.RegisterQueries(queryBus, ledgerSvc)
	reviewsapp.RegisterQueries(queryBus, reviews)
	availabilityapp.RegisterQueries(queryBus, catalogSvc, availability)
	meapp.RegisterQueries(queryBus, st.Units)
	logger.Debug("buses ready", "commands", cmdBus.Keys(), "queries", queryBus.Keys())

	validator := middleware.NewStructValidator()
	authorizer := middleware.ActorAuthorizer{}

	return &Application{
		Commands: middleware.ChainCommands(cmdBus,
			middleware.Logging(logger),
			middleware.Validation(validator),
			middleware.Authorization(authorizer),
			middleware.Idempotency(st.Idempotency, nil),
			middleware.OutboxFlush(st.Outbox, logger),
		),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryLogging(logger),
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(authorizer),
		),
		Auth:         authService,
		Catalog:      catalogSvc,
		Ledger:       ledgerSvc,
		Availability: availability,
		Reviews:      reviews,
		logger:       logger,
	}, nil
}

// HTTPHandlers binds the buses to the gin handlers. limiter may be nil.
func (a *Application) HTTPHandlers(limiter gin.HandlerFunc) ginserver.Handlers {
	httpLogger := a.logger.With("component", "http")
	return ginserver.Handlers{
		Auth:           ginserver.AuthHandler{Commands: a.Commands, Queries: a.Queries, Logger: httpLogger},
		Listing:        ginserver.ListingHandler{Commands: a.Commands, Queries: a.Queries, Logger: httpLogger},
		Booking:        ginserver.BookingHandler{Commands: a.Commands, Queries: a.Queries, Logger: httpLogger},
		Review:         ginserver.ReviewHandler{Commands: a.Commands, Queries: a.Queries, Logger: httpLogger},
		Admin:          ginserver.AdminHandler{Commands: a.Commands, Queries: a.Queries, Logger: httpLogger},
		AuthMiddleware: ginserver.AuthMiddleware{Service: a.Auth, Logger: httpLogger}.Handle,
		WriteLimiter:   limiter,
	}
}
