package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain/shared/daterange"
	"wanderlust/internal/domain/shared/failure"
)

func TestReserveAdjacentRanges(t *testing.T) {
	rec := NewRecord("lst-1")
	now := time.Now()

	require.NoError(t, rec.Reserve("t1", daterange.MustParse("2024-01-05", "2024-01-10"), now))
	assert.True(t, rec.IsFree(daterange.MustParse("2024-01-10", "2024-01-15")))
	require.NoError(t, rec.Reserve("t2", daterange.MustParse("2024-01-10", "2024-01-15"), now))
	require.NoError(t, rec.Reserve("t0", daterange.MustParse("2024-01-01", "2024-01-05"), now))

	tokens := []ReservationToken{}
	for _, h := range rec.Holds {
		tokens = append(tokens, h.Token)
	}
	assert.Equal(t, []ReservationToken{"t0", "t1", "t2"}, tokens)
}

func TestReserveRejectsOverlap(t *testing.T) {
	rec := NewRecord("lst-1")
	now := time.Now()
	require.NoError(t, rec.Reserve("t1", daterange.MustParse("2024-06-01", "2024-06-04"), now))
	rec.Drain()

	err := rec.Reserve("t2", daterange.MustParse("2024-06-03", "2024-06-05"), now)
	assert.ErrorIs(t, err, ErrOverlappingRange)
	assert.Equal(t, failure.KindConflict, failure.KindOf(err))
	assert.Len(t, rec.Holds, 1)

	evs := rec.Drain()
	require.Len(t, evs, 1)
	assert.Equal(t, "availability.overbooking_prevented", evs[0].EventName())

	assert.ErrorIs(t, rec.Reserve("", daterange.MustParse("2024-07-01", "2024-07-02"), now), ErrTokenRequired)
}

func TestReleaseIsIdempotent(t *testing.T) {
	rec := NewRecord("lst-1")
	now := time.Now()
	dr := daterange.MustParse("2024-06-01", "2024-06-04")
	require.NoError(t, rec.Reserve("t1", dr, now))

	assert.True(t, rec.Release("t1", now))
	eventsBefore := len(rec.PendingEvents())
	assert.False(t, rec.Release("t1", now))
	assert.Empty(t, rec.Holds)
	assert.Len(t, rec.PendingEvents(), eventsBefore)
	assert.True(t, rec.IsFree(dr))
}

func TestBetweenFiltersWindow(t *testing.T) {
	rec := NewRecord("lst-1")
	now := time.Now()
	require.NoError(t, rec.Reserve("a", daterange.MustParse("2024-06-01", "2024-06-04"), now))
	require.NoError(t, rec.Reserve("b", daterange.MustParse("2024-07-01", "2024-07-04"), now))

	assert.Len(t, rec.Between(daterange.DateRange{}), 2)
	got := rec.Between(daterange.MustParse("2024-06-20", "2024-07-02"))
	require.Len(t, got, 1)
	assert.Equal(t, ReservationToken("b"), got[0].Token)

	h, ok := rec.Hold("a")
	assert.True(t, ok)
	assert.Equal(t, 3, h.Range.Nights())
}

func TestClosedRecordRefusesNewHolds(t *testing.T) {
	rec := NewRecord("lst-1")
	now := time.Now()
	require.NoError(t, rec.Reserve("t1", daterange.MustParse("2024-06-01", "2024-06-04"), now))

	assert.True(t, rec.Close())
	assert.False(t, rec.Close())

	err := rec.Reserve("t2", daterange.MustParse("2024-07-01", "2024-07-04"), now)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, failure.KindUnavailable, failure.KindOf(err))
	assert.True(t, rec.Release("t1", now), "existing holds can still be released")

	clone := rec.Clone()
	assert.True(t, clone.Closed)

	assert.True(t, rec.Reopen())
	require.NoError(t, rec.Reserve("t3", daterange.MustParse("2024-07-01", "2024-07-04"), now))
}
