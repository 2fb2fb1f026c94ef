package booking_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/app/commands"
	"wanderlust/internal/app/dto"
	"wanderlust/internal/app/handlers/booking"
	"wanderlust/internal/app/middleware"
	"wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/queries"
	"wanderlust/internal/app/services/availability"
	"wanderlust/internal/app/services/ledger"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/infra/storage/memory"
)

var (
	now   = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	guest = policies.Actor{ID: "guest-1"}
	other = policies.Actor{ID: "guest-2"}
	owner = policies.Actor{ID: "owner-1"}
)

type harness struct {
	store    *memory.Store
	commands commands.Bus
	queries  queries.Bus
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	clock := func() time.Time { return now }
	events := &outbox.Recorder{Outbox: store.Outbox}
	avail := availability.New(availability.Config{Repository: store.Availability, Events: events, Clock: clock})
	svc := ledger.New(ledger.Config{Units: store.Factory(), Reservations: avail, Events: events, Clock: clock})

	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:      "listing-1",
		OwnerID: owner.ID,
		Fields: domainlistings.Fields{
			Title:       "Beach hut",
			Description: "Two steps from the sand, sleeps three.",
			Image:       &domainlistings.Image{URL: "https://img.example.com/hut.jpg", Filename: "listings/hut.jpg"},
			Price:       5000,
			Location:    "Comporta",
			Country:     "Portugal",
			Category:    "Beach",
		},
		Now: now,
	})
	require.NoError(t, err)
	require.NoError(t, listing.SetStatus(domainlistings.StatusApproved, now))
	require.NoError(t, store.Listings.Save(context.Background(), listing))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cmdBus := commands.NewInMemoryBus()
	booking.Register(cmdBus, svc)
	queryBus := queries.NewInMemoryBus()
	booking.RegisterQueries(queryBus, svc)

	return &harness{
		store: store,
		commands: middleware.ChainCommands(cmdBus,
			middleware.Logging(logger),
			middleware.Validation(middleware.NewStructValidator()),
			middleware.Authorization(middleware.ActorAuthorizer{}),
			middleware.Idempotency(store.Idempotency, nil),
			middleware.OutboxFlush(store.Outbox, logger),
		),
		queries: middleware.ChainQueries(queryBus,
			middleware.QueryLogging(logger),
			middleware.QueryAuthorization(middleware.ActorAuthorizer{}),
		),
	}
}

func request(actor policies.Actor, key string) booking.RequestBookingCommand {
	return booking.RequestBookingCommand{
		Actor:           actor,
		ListingID:       "listing-1",
		CheckIn:         "2024-06-01",
		CheckOut:        "2024-06-04",
		Guests:          2,
		IdempotencyKeyV: key,
	}
}

func TestRequestBookingReplaysIdempotentRetries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, request(guest, "retry-1"))
	require.NoError(t, err)
	assert.Equal(t, "pending", first.Status)
	assert.Equal(t, int64(15000), first.Total.Amount)
	assert.Empty(t, h.store.Outbox.Pending())

	again, err := commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, request(guest, "retry-1"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, request(other, "retry-1"))
	require.ErrorIs(t, err, failure.ErrUnavailable)

	list, err := queries.Ask[booking.GuestBookingsQuery, dto.BookingCollection](ctx, h.queries, booking.GuestBookingsQuery{Actor: guest})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestRequestBookingRejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, request(policies.Actor{}, ""))
	assert.ErrorIs(t, err, failure.ErrForbidden)

	cmd := request(guest, "")
	cmd.Guests = 0
	_, err = commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, cmd)
	require.ErrorIs(t, err, failure.ErrValidation)
	assert.Contains(t, failure.AsValidation(err).Fields(), "guests")

	cmd = request(guest, "")
	cmd.CheckIn = "June first"
	_, err = commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, cmd)
	require.ErrorIs(t, err, failure.ErrValidation)
	assert.Contains(t, failure.AsValidation(err).Fields(), "check_in")
}

func TestConfirmCancelAndListingBookings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, request(guest, ""))
	require.NoError(t, err)

	confirmed, err := commands.Dispatch[booking.ConfirmBookingCommand, *dto.Booking](ctx, h.commands, booking.ConfirmBookingCommand{Actor: owner, BookingID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", confirmed.Status)

	_, err = queries.Ask[booking.ListingBookingsQuery, dto.BookingCollection](ctx, h.queries, booking.ListingBookingsQuery{Actor: guest, ListingID: "listing-1"})
	assert.ErrorIs(t, err, failure.ErrForbidden)
	byOwner, err := queries.Ask[booking.ListingBookingsQuery, dto.BookingCollection](ctx, h.queries, booking.ListingBookingsQuery{Actor: owner, ListingID: "listing-1"})
	require.NoError(t, err)
	assert.Len(t, byOwner.Items, 1)

	cancelled, err := commands.Dispatch[booking.CancelBookingCommand, *dto.Booking](ctx, h.commands, booking.CancelBookingCommand{Actor: guest, BookingID: created.ID, Reason: "plans changed"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	rebooked, err := commands.Dispatch[booking.RequestBookingCommand, *dto.Booking](ctx, h.commands, request(other, ""))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, rebooked.ID)
}

func TestCompleteDueRunsAsSystem(t *testing.T) {
	h := newHarness(t)
	res, err := commands.Dispatch[booking.CompleteDueCommand, *booking.CompleteDueResult](context.Background(), h.commands, booking.CompleteDueCommand{})
	require.NoError(t, err)
	assert.Zero(t, res.Completed)
}
