package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderlust/internal/domain/shared/failure"
)

type countQuery struct{ N int }

func (countQuery) Key() string { return "test.count" }

func TestAskRoutesByKey(t *testing.T) {
	ctx := context.Background()
	bus := NewInMemoryBus()
	RegisterHandler(bus, "test.count", HandlerFunc[countQuery, int](func(_ context.Context, q countQuery) (int, error) {
		return q.N * 2, nil
	}))

	got, err := Ask[countQuery, int](ctx, bus, countQuery{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = Ask[countQuery, string](ctx, bus, countQuery{})
	assert.ErrorIs(t, err, ErrResultType)

	assert.Panics(t, func() {
		RegisterHandler(bus, "test.count", HandlerFunc[countQuery, int](func(context.Context, countQuery) (int, error) { return 0, nil }))
	})
}

func TestAskUnknownQueryIsUnsupported(t *testing.T) {
	_, err := NewInMemoryBus().Ask(context.Background(), countQuery{})
	require.ErrorIs(t, err, ErrHandlerNotFound)
	assert.ErrorIs(t, err, failure.ErrUnsupported)
	assert.Contains(t, err.Error(), "test.count")
}
