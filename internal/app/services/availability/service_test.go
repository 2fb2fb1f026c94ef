package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/app/outbox"
	domainavailability "wanderlust/internal/domain/availability"
	domainlistings "wanderlust/internal/domain/listings"
	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/infra/storage/memory"
)

func newService(t *testing.T) (*Service, *memory.Outbox) {
	t.Helper()
	box := memory.NewOutbox(nil)
	svc := New(Config{
		Repository: memory.NewAvailabilityRepository(),
		Events:     &outbox.Recorder{Outbox: box},
		Clock:      func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	return svc, box
}

func TestAdjacentRangesAreBothReservable(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	first := daterange.MustParse("2024-01-05", "2024-01-10")
	second := daterange.MustParse("2024-01-10", "2024-01-15")

	_, err := svc.Reserve(ctx, "l1", first)
	require.NoError(t, err)
	free, err := svc.IsFree(ctx, "l1", second)
	require.NoError(t, err)
	assert.True(t, free)
	_, err = svc.Reserve(ctx, "l1", second)
	require.NoError(t, err)

	free, err = svc.IsFree(ctx, "l1", daterange.MustParse("2024-01-09", "2024-01-11"))
	require.NoError(t, err)
	assert.False(t, free)
}

func TestReserveOverlapIsConflict(t *testing.T) {
	svc, box := newService(t)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "l1", daterange.MustParse("2024-02-01", "2024-02-05"))
	require.NoError(t, err)
	_, err = svc.Reserve(ctx, "l1", daterange.MustParse("2024-02-04", "2024-02-06"))
	require.ErrorIs(t, err, domainavailability.ErrOverlappingRange)
	assert.Equal(t, failure.KindConflict, failure.KindOf(err))

	assert.Equal(t, []string{"availability.reserved", "availability.overbooking_prevented"}, box.Pending())
}

func TestReleaseTwiceMatchesReleaseOnce(t *testing.T) {
	svc, box := newService(t)
	ctx := context.Background()
	dr := daterange.MustParse("2024-03-01", "2024-03-04")

	token, err := svc.Reserve(ctx, "l1", dr)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, "l1", token))
	afterOnce, err := svc.Reserved(ctx, "l1", daterange.DateRange{})
	require.NoError(t, err)
	eventsOnce := len(box.Pending())

	require.NoError(t, svc.Release(ctx, "l1", token))
	afterTwice, err := svc.Reserved(ctx, "l1", daterange.DateRange{})
	require.NoError(t, err)

	assert.Equal(t, afterOnce, afterTwice)
	assert.Len(t, box.Pending(), eventsOnce)
	assert.ErrorIs(t, svc.Release(ctx, "l1", ""), domainavailability.ErrTokenRequired)
}

func TestReservedWindow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, r := range [][2]string{{"2024-04-01", "2024-04-03"}, {"2024-04-10", "2024-04-12"}, {"2024-05-01", "2024-05-02"}} {
		_, err := svc.Reserve(ctx, "l1", daterange.MustParse(r[0], r[1]))
		require.NoError(t, err)
	}

	got, err := svc.Reserved(ctx, "l1", daterange.MustParse("2024-04-02", "2024-04-30"))
	require.NoError(t, err)
	assert.Equal(t, []daterange.DateRange{
		daterange.MustParse("2024-04-01", "2024-04-03"),
		daterange.MustParse("2024-04-10", "2024-04-12"),
	}, got)
}

func TestListingsDoNotContend(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	dr := daterange.MustParse("2024-06-01", "2024-06-04")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id domainlistings.ListingID) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, id, dr)
			errs <- err
		}(domainlistings.ListingID(rune('a' + i)))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Zero(t, svc.locks.size())
}

type flakyRepo struct {
	domainavailability.Repository
	failures int
}

func (r *flakyRepo) Save(ctx context.Context, rec *domainavailability.Record) error {
	if r.failures > 0 {
		r.failures--
		return domainavailability.ErrConcurrentUpdate
	}
	return r.Repository.Save(ctx, rec)
}

func TestReserveRetriesVersionConflicts(t *testing.T) {
	repo := &flakyRepo{Repository: memory.NewAvailabilityRepository(), failures: 2}
	svc := New(Config{Repository: repo})

	_, err := svc.Reserve(context.Background(), "l1", daterange.MustParse("2024-06-01", "2024-06-02"))
	require.NoError(t, err)

	repo.failures = saveAttempts
	_, err = svc.Reserve(context.Background(), "l1", daterange.MustParse("2024-06-05", "2024-06-06"))
	assert.True(t, errors.Is(err, domainavailability.ErrConcurrentUpdate))
}

func TestInvalidRange(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Reserve(context.Background(), "l1", daterange.DateRange{})
	assert.ErrorIs(t, err, failure.ErrValidation)
}

func TestClosedListingRefusesReservations(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	held, err := svc.Reserve(ctx, "l1", daterange.MustParse("2024-03-01", "2024-03-04"))
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, "l1"))
	require.NoError(t, svc.Close(ctx, "l1"))
	accepting, err := svc.Accepting(ctx, "l1")
	require.NoError(t, err)
	assert.False(t, accepting)

	_, err = svc.Reserve(ctx, "l1", daterange.MustParse("2024-04-01", "2024-04-04"))
	assert.ErrorIs(t, err, domainavailability.ErrClosed)
	require.NoError(t, svc.Release(ctx, "l1", held))

	require.NoError(t, svc.Reopen(ctx, "l1"))
	_, err = svc.Reserve(ctx, "l1", daterange.MustParse("2024-04-01", "2024-04-04"))
	require.NoError(t, err)

	require.NoError(t, svc.Drop(ctx, "l1"))
	accepting, err = svc.Accepting(ctx, "l1")
	require.NoError(t, err)
	assert.True(t, accepting, "a dropped record reads as a fresh one")
}
