package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/services/availability"
	"wanderlust/internal/app/services/ledger"
	domainavailability "wanderlust/internal/domain/availability"
	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/infra/storage/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store   *memory.Store
	avail   *availability.Service
	ledger  *ledger.Service
	clock   *clock
	listing *domainlistings.Listing
}

var (
	guest1 = policies.Actor{ID: "guest-1"}
	guest2 = policies.Actor{ID: "guest-2"}
	owner  = policies.Actor{ID: "owner-1"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	return newFixtureWith(t, store, store.Factory())
}

func newFixtureWith(t *testing.T, store *memory.Store, factory memory.Factory) *fixture {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	events := &outbox.Recorder{Outbox: store.Outbox}
	avail := availability.New(availability.Config{Repository: store.Availability, Events: events, Clock: clk.Now})
	svc := ledger.New(ledger.Config{Units: factory, Reservations: avail, Events: events, Clock: clk.Now})

	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:      "listing-1",
		OwnerID: owner.ID,
		Fields: domainlistings.Fields{
			Title:       "Cabin by the lake",
			Description: "Quiet wooden cabin with a private pier.",
			Image:       &domainlistings.Image{URL: "https://img.example.com/cabin.jpg", Filename: "listings/cabin.jpg"},
			Price:       100,
			Location:    "Lake Tahoe",
			Country:     "United States",
			Category:    "Lake",
			MaxGuests:   4,
		},
		Now: clk.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, listing.SetStatus(domainlistings.StatusApproved, clk.Now()))
	require.NoError(t, store.Listings.Save(context.Background(), listing))

	return &fixture{store: store, avail: avail, ledger: svc, clock: clk, listing: listing}
}

func (f *fixture) request(guest policies.Actor, in, out string) (*domainbooking.Booking, error) {
	return f.ledger.Request(context.Background(), ledger.RequestParams{
		ListingID: f.listing.ID,
		GuestID:   guest.ID,
		Range:     daterange.MustParse(in, out),
		Guests:    2,
	})
}

func TestBookingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, first.Status)
	assert.Equal(t, int64(300), first.Price.Total.Amount)
	assert.Equal(t, 3, first.Price.Nights)

	confirmed, err := f.ledger.Confirm(ctx, first.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, confirmed.Status)

	_, err = f.request(guest2, "2024-06-03", "2024-06-05")
	require.ErrorIs(t, err, domainbooking.ErrUnavailable)
	assert.Equal(t, failure.KindUnavailable, failure.KindOf(err))

	cancelled, err := f.ledger.Cancel(ctx, first.ID, guest1, "")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, cancelled.Status)

	second, err := f.request(guest2, "2024-06-03", "2024-06-05")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, second.Status)
	assert.Equal(t, int64(200), second.Price.Total.Amount)
}

func TestCancellationFreesIdenticalRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.request(guest1, "2024-07-01", "2024-07-08")
	require.NoError(t, err)
	_, err = f.request(guest2, "2024-07-01", "2024-07-08")
	require.ErrorIs(t, err, domainbooking.ErrUnavailable)

	_, err = f.ledger.Cancel(ctx, b.ID, owner, "maintenance")
	require.NoError(t, err)

	_, err = f.request(guest2, "2024-07-01", "2024-07-08")
	require.NoError(t, err)
}

func TestAdjacentStaysBothSucceed(t *testing.T) {
	f := newFixture(t)

	_, err := f.request(guest1, "2024-01-05", "2024-01-10")
	require.Error(t, err, "check-in before today is rejected")

	f.clock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err = f.request(guest1, "2024-01-05", "2024-01-10")
	require.NoError(t, err)
	_, err = f.request(guest2, "2024-01-10", "2024-01-15")
	require.NoError(t, err)
}

func TestConcurrentRequestsOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	const contenders = 16

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		wins        int
		unavailable int
	)
	start := make(chan struct{})
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.request(policies.Actor{ID: fmt.Sprintf("guest-%d", i)}, "2024-08-01", fmt.Sprintf("2024-08-%02d", 3+i%5))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, failure.ErrUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, contenders-1, unavailable)
}

func TestActiveBookingsNeverOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ranges := [][2]string{
		{"2024-09-01", "2024-09-05"}, {"2024-09-03", "2024-09-06"}, {"2024-09-05", "2024-09-07"},
		{"2024-09-06", "2024-09-09"}, {"2024-09-07", "2024-09-08"}, {"2024-08-30", "2024-09-02"},
		{"2024-09-09", "2024-09-12"}, {"2024-09-10", "2024-09-11"},
	}
	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, in, out string) {
			defer wg.Done()
			_, _ = f.request(policies.Actor{ID: fmt.Sprintf("guest-%d", i)}, in, out)
		}(i, r[0], r[1])
	}
	wg.Wait()

	bookings, err := f.ledger.ListForListing(ctx, f.listing.ID, owner)
	require.NoError(t, err)
	require.NotEmpty(t, bookings)
	for i := range bookings {
		for j := i + 1; j < len(bookings); j++ {
			if bookings[i].Status.Holds() && bookings[j].Status.Holds() {
				assert.False(t, bookings[i].Range.Overlaps(bookings[j].Range), "%s overlaps %s", bookings[i].Range, bookings[j].Range)
			}
		}
	}
}

func TestRequestRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Request(ctx, ledger.RequestParams{ListingID: "missing", GuestID: "g", Range: daterange.MustParse("2024-06-01", "2024-06-02"), Guests: 1})
	assert.ErrorIs(t, err, failure.ErrNotFound)

	_, err = f.ledger.Request(ctx, ledger.RequestParams{ListingID: f.listing.ID, GuestID: "g", Range: daterange.MustParse("2024-06-01", "2024-06-02"), Guests: 5})
	assert.ErrorIs(t, err, failure.ErrValidation)

	_, err = f.ledger.Request(ctx, ledger.RequestParams{ListingID: f.listing.ID, GuestID: "g", Range: daterange.MustParse("2024-04-01", "2024-06-02"), Guests: 1})
	assert.ErrorIs(t, err, domainbooking.ErrCheckInInPast)

	pending, err := domainlistings.NewListing(domainlistings.CreateParams{ID: "listing-2", OwnerID: owner.ID, Fields: f.listing.Fields(), Now: f.clock.Now()})
	require.NoError(t, err)
	require.NoError(t, f.store.Listings.Save(ctx, pending))
	_, err = f.ledger.Request(ctx, ledger.RequestParams{ListingID: pending.ID, GuestID: "g", Range: daterange.MustParse("2024-06-01", "2024-06-02"), Guests: 1})
	assert.ErrorIs(t, err, domainlistings.ErrNotBookable)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

type failingBookings struct {
	*memory.BookingRepository
}

func (failingBookings) Save(context.Context, *domainbooking.Booking) error {
	return failure.Storage("bookings.save", errors.New("connection reset"))
}

func TestFailedSaveReleasesReservation(t *testing.T) {
	store := memory.NewStore()
	factory := store.Factory()
	factory.BookingsRepo = failingBookings{store.Bookings}
	f := newFixtureWith(t, store, factory)
	ctx := context.Background()

	_, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.ErrorIs(t, err, failure.ErrStorageUnavailable)

	free, err := f.avail.IsFree(ctx, f.listing.ID, daterange.MustParse("2024-06-01", "2024-06-04"))
	require.NoError(t, err)
	assert.True(t, free)
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.NoError(t, err)

	_, err = f.ledger.Cancel(ctx, b.ID, guest2, "")
	assert.ErrorIs(t, err, failure.ErrForbidden)

	_, err = f.ledger.Cancel(ctx, b.ID, policies.Actor{ID: "root", IsAdmin: true}, "")
	require.NoError(t, err)

	_, err = f.ledger.Cancel(ctx, b.ID, guest1, "")
	assert.ErrorIs(t, err, failure.ErrInvalidState)
	_, err = f.ledger.Confirm(ctx, b.ID, owner)
	assert.ErrorIs(t, err, failure.ErrInvalidState)
}

func TestConfirmRequiresOwner(t *testing.T) {
	f := newFixture(t)
	b, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.NoError(t, err)

	_, err = f.ledger.Confirm(context.Background(), b.ID, guest1)
	assert.ErrorIs(t, err, failure.ErrForbidden)
	_, err = f.ledger.Confirm(context.Background(), b.ID, policies.System)
	assert.NoError(t, err)
}

func TestCompleteDueIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	done, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	_, err = f.ledger.Confirm(ctx, done.ID, owner)
	require.NoError(t, err)
	later, err := f.request(guest2, "2024-06-10", "2024-06-12")
	require.NoError(t, err)
	_, err = f.ledger.Confirm(ctx, later.ID, owner)
	require.NoError(t, err)
	pending, err := f.request(guest2, "2024-06-04", "2024-06-06")
	require.NoError(t, err)

	f.clock.Set(time.Date(2024, 6, 4, 11, 0, 0, 0, time.UTC))
	n, err := f.ledger.CompleteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.ledger.CompleteDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.ledger.Get(ctx, done.ID, guest1)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, got.Status)
	got, err = f.ledger.Get(ctx, later.ID, guest2)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, got.Status)
	got, err = f.ledger.Get(ctx, pending.ID, guest2)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, got.Status)
}

func TestCancelForListingSkipsCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.NoError(t, err)
	_, err = f.ledger.Confirm(ctx, a.ID, owner)
	require.NoError(t, err)
	b, err := f.request(guest2, "2024-06-20", "2024-06-22")
	require.NoError(t, err)
	f.clock.Set(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC))
	_, err = f.ledger.CompleteDue(ctx)
	require.NoError(t, err)

	n, err := f.ledger.CancelForListing(ctx, f.listing.ID, policies.System)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.ledger.Get(ctx, b.ID, guest2)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, got.Status)
	got, err = f.ledger.Get(ctx, a.ID, guest1)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, got.Status)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.NoError(t, err)

	_, err = f.ledger.Get(ctx, b.ID, guest2)
	assert.ErrorIs(t, err, failure.ErrNotFound)
	_, err = f.ledger.ListForListing(ctx, f.listing.ID, guest2)
	assert.ErrorIs(t, err, failure.ErrForbidden)

	mine, err := f.ledger.ListForGuest(ctx, guest1.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Cabin by the lake", mine[0].ListingTitle)
}

func TestRequestOnClosedListingIsUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.avail.Close(context.Background(), f.listing.ID))

	_, err := f.request(guest1, "2024-06-01", "2024-06-04")
	require.ErrorIs(t, err, domainbooking.ErrUnavailable)
	assert.Equal(t, failure.KindUnavailable, failure.KindOf(err))
}

// closeAfterReserve closes the listing right after the hold is taken, the way a
// concurrent listing removal would.
type closeAfterReserve struct {
	*availability.Service
}

func (r closeAfterReserve) Reserve(ctx context.Context, id domainlistings.ListingID, dr daterange.DateRange) (domainavailability.ReservationToken, error) {
	token, err := r.Service.Reserve(ctx, id, dr)
	if err != nil {
		return "", err
	}
	return token, r.Service.Close(ctx, id)
}

func TestBookingStoredDuringRemovalIsWithdrawn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := ledger.New(ledger.Config{
		Units:        f.store.Factory(),
		Reservations: closeAfterReserve{f.avail},
		Events:       &outbox.Recorder{Outbox: f.store.Outbox},
		Clock:        f.clock.Now,
	})

	_, err := svc.Request(ctx, ledger.RequestParams{
		ListingID: f.listing.ID,
		GuestID:   guest1.ID,
		Range:     daterange.MustParse("2024-06-01", "2024-06-04"),
		Guests:    2,
	})
	require.ErrorIs(t, err, domainbooking.ErrUnavailable)

	mine, err := f.ledger.ListForGuest(ctx, guest1.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domainbooking.StatusCancelled, mine[0].Status)
	held, err := f.avail.Reserved(ctx, f.listing.ID, daterange.DateRange{})
	require.NoError(t, err)
	assert.Empty(t, held)
}
