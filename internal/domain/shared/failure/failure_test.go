package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedSentinels(t *testing.T) {
	notFound := fmt.Errorf("listings: listing %w", ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(notFound))
	assert.Equal(t, KindNotFound, KindOf(fmt.Errorf("catalog: get: %w", notFound)))
	assert.Equal(t, KindUnavailable, KindOf(fmt.Errorf("ledger: %w", ErrUnavailable)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestValidationErrorCollectsFields(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())

	verr.Add("title", "is required")
	verr.Add("price", "must be >= 0")
	verr.Add("price", "must be an integer")

	err := fmt.Errorf("catalog: create: %w", verr.OrNil())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, KindValidation, KindOf(err))

	extracted := AsValidation(err)
	require.NotNil(t, extracted)
	assert.Len(t, extracted.Violations, 3)
	assert.Equal(t, []string{"must be >= 0", "must be an integer"}, extracted.Fields()["price"])
	assert.Contains(t, err.Error(), "title: is required")
}

func TestStorageWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Storage("mongo: save booking", cause)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, Storage("noop", nil))
}

func TestRestoreKeepsKind(t *testing.T) {
	err := Restore(KindUnavailable, "booking: requested dates are unavailable")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "booking: requested dates are unavailable", err.Error())
	assert.Equal(t, KindUnknown, KindOf(Restore(KindUnknown, "x")))
}

func TestUnsupportedIsItsOwnKind(t *testing.T) {
	err := fmt.Errorf("commands: no handler for %q: %w", "bookings.request", ErrUnsupported)
	assert.Equal(t, KindUnsupported, KindOf(err))

	replayed := Restore(KindUnsupported, err.Error())
	assert.ErrorIs(t, replayed, ErrUnsupported)
}
