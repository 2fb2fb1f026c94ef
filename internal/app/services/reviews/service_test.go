package reviews_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/app/outbox"
	"wanderlust/internal/app/policies"
	"wanderlust/internal/app/services/reviews"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
	"wanderlust/internal/domain/shared/failure"
	"wanderlust/internal/infra/storage/memory"
)

var (
	admin = policies.Actor{ID: "root", IsAdmin: true}
	start = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

type env struct {
	store   *memory.Store
	svc     *reviews.Service
	listing domainlistings.ListingID
}

func newEnv(t *testing.T, excludeUnapproved bool) *env {
	t.Helper()
	store := memory.NewStore()
	listing, err := domainlistings.NewListing(domainlistings.CreateParams{
		ID:      "listing-1",
		OwnerID: "owner-1",
		Fields: domainlistings.Fields{
			Title:       "Lake cabin",
			Description: "Quiet cabin by the lake with a rowing boat.",
			Image:       &domainlistings.Image{URL: "https://img.example.com/cabin.jpg", Filename: "listings/cabin.jpg"},
			Price:       12000,
			Location:    "Bled",
			Country:     "Slovenia",
			Category:    "lake",
		},
		Now: start,
	})
	require.NoError(t, err)
	require.NoError(t, store.Listings.Save(context.Background(), listing))

	clock := start
	ids := 0
	svc := reviews.New(reviews.Config{
		Units:  store.Factory(),
		Events: &outbox.Recorder{Outbox: store.Outbox},
		Clock: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		IDs: func() string {
			ids++
			return fmt.Sprintf("review-%d", ids)
		},
		ExcludeUnapproved: excludeUnapproved,
	})
	return &env{store: store, svc: svc, listing: listing.ID}
}

func (e *env) submit(t *testing.T, author string, rating int) *domainreviews.Review {
	t.Helper()
	review, err := e.svc.Submit(context.Background(), reviews.SubmitParams{
		ListingID:  e.listing,
		AuthorID:   author,
		AuthorName: author,
		Rating:     rating,
		Comment:    "Lovely stay, would come back.",
	})
	require.NoError(t, err)
	return review
}

func TestAverageIsMaintainedIncrementally(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	e.submit(t, "ana", 5)
	three := e.submit(t, "ben", 3)
	e.submit(t, "cid", 4)

	avg, err := e.svc.AverageRating(ctx, e.listing)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)

	require.NoError(t, e.svc.Delete(ctx, three.ID, policies.Actor{ID: "ben"}))
	avg, err = e.svc.AverageRating(ctx, e.listing)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, avg, 1e-9)

	page, err := e.svc.ListForListing(ctx, e.listing, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.InDelta(t, 4.5, page.Average, 1e-9)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "cid", page.Items[0].AuthorID)
}

func TestAverageWithoutReviewsIsZero(t *testing.T) {
	e := newEnv(t, false)
	avg, err := e.svc.AverageRating(context.Background(), e.listing)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestSubmitRejectsSecondReviewFromSameAuthor(t *testing.T) {
	e := newEnv(t, false)
	e.submit(t, "ana", 5)

	_, err := e.svc.Submit(context.Background(), reviews.SubmitParams{
		ListingID: e.listing,
		AuthorID:  "ana",
		Rating:    1,
		Comment:   "Changed my mind about it.",
	})
	require.ErrorIs(t, err, failure.ErrDuplicate)

	avg, err := e.svc.AverageRating(context.Background(), e.listing)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, avg, 1e-9)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	_, err := e.svc.Submit(ctx, reviews.SubmitParams{ListingID: e.listing, AuthorID: "ana", Rating: 6, Comment: "short"})
	verr := failure.AsValidation(err)
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields(), "rating")
	assert.Contains(t, verr.Fields(), "comment")

	_, err = e.svc.Submit(ctx, reviews.SubmitParams{ListingID: "missing", AuthorID: "ana", Rating: 4, Comment: "Nice place overall."})
	assert.ErrorIs(t, err, failure.ErrNotFound)
}

func TestDeletePermissions(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	review := e.submit(t, "ana", 2)

	err := e.svc.Delete(ctx, review.ID, policies.Actor{ID: "mallory"})
	assert.ErrorIs(t, err, failure.ErrForbidden)

	require.NoError(t, e.svc.Delete(ctx, review.ID, admin))
	err = e.svc.Delete(ctx, review.ID, admin)
	assert.ErrorIs(t, err, failure.ErrNotFound)
	assert.Equal(t, []string{"review.submitted", "review.deleted"}, e.store.Outbox.Pending())
}

func TestModerationWithDefaultCountingKeepsAverage(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	review := e.submit(t, "ana", 4)

	_, err := e.svc.Moderate(ctx, review.ID, true, policies.Actor{ID: "ana"})
	require.ErrorIs(t, err, failure.ErrForbidden)

	moderated, err := e.svc.Moderate(ctx, review.ID, true, admin)
	require.NoError(t, err)
	assert.True(t, moderated.Approved)

	avg, err := e.svc.AverageRating(ctx, e.listing)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, avg, 1e-9)
}

func TestExcludeUnapprovedCountsOnlyModeratedReviews(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()
	first := e.submit(t, "ana", 5)
	e.submit(t, "ben", 1)

	avg, err := e.svc.AverageRating(ctx, e.listing)
	require.NoError(t, err)
	assert.Zero(t, avg)

	_, err = e.svc.Moderate(ctx, first.ID, true, admin)
	require.NoError(t, err)
	avg, err = e.svc.AverageRating(ctx, e.listing)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, avg, 1e-9)

	page, err := e.svc.ListForListing(ctx, e.listing, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = e.svc.Moderate(ctx, first.ID, false, admin)
	require.NoError(t, err)
	avg, err = e.svc.AverageRating(ctx, e.listing)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestListAllAndDeleteForListing(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	e.submit(t, "ana", 5)
	e.submit(t, "ben", 4)

	_, err := e.svc.ListAll(ctx, policies.Actor{ID: "ana"}, 10, 0)
	require.ErrorIs(t, err, failure.ErrForbidden)

	page, err := e.svc.ListAll(ctx, admin, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Items, 1)

	removed, err := e.svc.DeleteForListing(ctx, e.listing)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := e.store.Reviews.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
