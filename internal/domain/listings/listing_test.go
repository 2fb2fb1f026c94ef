package listings

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain/shared/failure"
)

func validFields() Fields {
	return Fields{
		Title:       "Cabin by the lake",
		Description: "Quiet wooden cabin with a private pier.",
		Image:       &Image{URL: "https://img.example.com/cabin.jpg", Filename: "listings/cabin.jpg"},
		Price:       100,
		Location:    "Lake Tahoe",
		Country:     "United States",
		Category:    "lake",
		MaxGuests:   4,
	}
}

func newTestListing(t *testing.T) *Listing {
	t.Helper()
	l, err := NewListing(CreateParams{ID: "lst-1", OwnerID: "owner-1", Fields: validFields(), Now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	return l
}

func TestNewListingDefaults(t *testing.T) {
	l := newTestListing(t)
	assert.Equal(t, StatusPending, l.Status)
	assert.Equal(t, CategoryLake, l.Category)
	assert.Equal(t, "USD", l.Price.Currency)
	assert.Equal(t, int64(100), l.Price.Amount)

	evs := l.Drain()
	require.Len(t, evs, 1)
	assert.Equal(t, "listing.created", evs[0].EventName())
}

func TestNewListingReportsEveryViolation(t *testing.T) {
	fields := validFields()
	fields.Title = "  "
	fields.Price = -5
	fields.Category = "Castle"
	fields.Image = nil

	_, err := NewListing(CreateParams{ID: "lst-1", OwnerID: "owner-1", Fields: fields, Now: time.Now()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, failure.ErrValidation))

	verr := failure.AsValidation(err)
	require.NotNil(t, verr)
	got := verr.Fields()
	assert.Contains(t, got, "title")
	assert.Contains(t, got, "price")
	assert.Contains(t, got, "category")
	assert.Contains(t, got, "image")
}

func TestNewListingRejectsBadImageURL(t *testing.T) {
	fields := validFields()
	fields.Image = &Image{URL: "not a url", Filename: ""}
	_, err := NewListing(CreateParams{ID: "lst-1", OwnerID: "owner-1", Fields: fields, Now: time.Now()})
	verr := failure.AsValidation(err)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields(), "image.url")
	assert.Contains(t, verr.Fields(), "image.filename")
}

func TestUpdateRevalidatesAndTracksLocation(t *testing.T) {
	l := newTestListing(t)
	point := orb.Point{-120.04, 39.09}
	l.SetGeometry(&point, time.Now())

	fields := l.Fields()
	fields.Title = "Renamed cabin"
	moved, err := l.Update(fields, time.Now())
	require.NoError(t, err)
	assert.False(t, moved)
	assert.NotNil(t, l.Geometry)

	fields.Location = "Lake Como"
	fields.Country = "Italy"
	moved, err = l.Update(fields, time.Now())
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Nil(t, l.Geometry)

	fields.Description = ""
	_, err = l.Update(fields, time.Now())
	assert.ErrorIs(t, err, failure.ErrValidation)
	assert.Equal(t, "Lake Como", l.Location)
}

func TestRegisterViewCountsEachFingerprintOnce(t *testing.T) {
	l := newTestListing(t)
	assert.True(t, l.RegisterView("10.0.0.1"))
	assert.False(t, l.RegisterView("10.0.0.1"))
	assert.False(t, l.RegisterView(" "))
	assert.True(t, l.RegisterView("10.0.0.2"))
	assert.Equal(t, int64(2), l.Views)
}

func TestApplyRatingIsIncrementalAndIdempotent(t *testing.T) {
	l := newTestListing(t)
	assert.Zero(t, l.AverageRating())

	assert.True(t, l.ApplyRating(RatingChange{ReviewID: "r1", Rating: 5}))
	assert.True(t, l.ApplyRating(RatingChange{ReviewID: "r2", Rating: 3}))
	assert.True(t, l.ApplyRating(RatingChange{ReviewID: "r3", Rating: 4}))
	assert.False(t, l.ApplyRating(RatingChange{ReviewID: "r3", Rating: 4}))
	assert.InDelta(t, 4.0, l.AverageRating(), 1e-9)

	assert.True(t, l.ApplyRating(RatingChange{ReviewID: "r2", Rating: 3, Removed: true}))
	assert.False(t, l.ApplyRating(RatingChange{ReviewID: "r2", Rating: 3, Removed: true}))
	assert.InDelta(t, 4.5, l.AverageRating(), 1e-9)
	assert.Equal(t, []string{"r1", "r3"}, l.ReviewIDs)
}

func TestStatusAndPermissions(t *testing.T) {
	l := newTestListing(t)
	assert.False(t, l.Bookable())
	assert.True(t, l.CanManage("owner-1", false))
	assert.False(t, l.CanManage("someone", false))
	assert.True(t, l.CanManage("someone", true))
	assert.False(t, l.CanManage("", false))

	require.NoError(t, l.SetStatus(StatusApproved, time.Now()))
	assert.True(t, l.Bookable())
	assert.ErrorIs(t, l.SetStatus("archived", time.Now()), failure.ErrValidation)
}

func TestSearchParamsMatching(t *testing.T) {
	l := newTestListing(t)
	featured := true

	assert.True(t, SearchParams{Destination: "TAHOE"}.Normalized().Matches(l))
	assert.True(t, SearchParams{Destination: "united"}.Normalized().Matches(l))
	assert.False(t, SearchParams{Destination: "Paris"}.Normalized().Matches(l))
	assert.True(t, SearchParams{Status: "Pending"}.Normalized().Matches(l))
	assert.False(t, SearchParams{Status: StatusApproved}.Normalized().Matches(l))
	assert.False(t, SearchParams{Featured: &featured}.Normalized().Matches(l))
	assert.True(t, SearchParams{Text: "PIER"}.Normalized().Matches(l))
}

func TestSearchParamsPage(t *testing.T) {
	items := []*Listing{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	assert.Len(t, SearchParams{}.Page(items), 3)
	assert.Equal(t, ListingID("b"), SearchParams{Offset: 1, Limit: 1}.Page(items)[0].ID)
	assert.Empty(t, SearchParams{Offset: 5}.Page(items))
}
