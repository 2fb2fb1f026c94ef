package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "wanderlust/internal/domain/booking"
	domainlistings "wanderlust/internal/domain/listings"
	domainreviews "wanderlust/internal/domain/reviews"
	"wanderlust/internal/domain/shared/failure"
	domainuser "wanderlust/internal/domain/user"
)

type fakeUnit struct {
	commits   int
	rollbacks int
}

func (u *fakeUnit) Listings() domainlistings.Repository { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository  { return nil }
func (u *fakeUnit) Reviews() domainreviews.Repository   { return nil }
func (u *fakeUnit) Users() domainuser.Repository        { return nil }
func (u *fakeUnit) Commit(context.Context) error        { u.commits++; return nil }
func (u *fakeUnit) Rollback(context.Context) error      { u.rollbacks++; return nil }

type fakeFactory struct{ units []*fakeUnit }

func (f *fakeFactory) Begin(context.Context, TxOptions) (UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	return u, nil
}

func TestRunCommitsOnSuccess(t *testing.T) {
	factory := &fakeFactory{}
	err := Run(context.Background(), factory, TxOptions{}, func(ctx context.Context, unit UnitOfWork) error {
		inner, ok := FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, unit, inner)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, factory.units, 1)
	assert.Equal(t, 1, factory.units[0].commits)
	assert.Equal(t, 0, factory.units[0].rollbacks)
}

func TestRunRollsBackOnError(t *testing.T) {
	factory := &fakeFactory{}
	boom := errors.New("boom")
	err := Run(context.Background(), factory, TxOptions{}, func(context.Context, UnitOfWork) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, factory.units[0].commits)
	assert.Equal(t, 1, factory.units[0].rollbacks)
}

func TestRunReusesAmbientUnit(t *testing.T) {
	factory := &fakeFactory{}
	outer := &fakeUnit{}
	ctx := ContextWithUnitOfWork(context.Background(), outer)

	err := Run(ctx, factory, TxOptions{}, func(_ context.Context, unit UnitOfWork) error {
		assert.Same(t, outer, unit)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, factory.units)
	assert.Equal(t, 0, outer.commits)
}

func TestReadNeverCommits(t *testing.T) {
	factory := &fakeFactory{}
	require.NoError(t, Read(context.Background(), factory, func(context.Context, UnitOfWork) error { return nil }))
	assert.Equal(t, 0, factory.units[0].commits)
	assert.Equal(t, 1, factory.units[0].rollbacks)
}

func TestRunWithoutFactory(t *testing.T) {
	err := Run(context.Background(), nil, TxOptions{}, func(context.Context, UnitOfWork) error { return nil })
	assert.ErrorIs(t, err, ErrUnitOfWorkMissing)
	assert.Equal(t, failure.KindStorageUnavailable, failure.KindOf(err))
}
