package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wanderlust/internal/domain/shared/failure"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("Secret123")
	require.NoError(t, err)

	require.NoError(t, h.Compare(hash, "Secret123"))
	assert.ErrorIs(t, h.Compare(hash, "Secret124"), ErrHashMismatch)

	err = h.Compare("not-a-hash", "Secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHashMismatch)
}

func TestBcryptHasherRejectsLongPasswords(t *testing.T) {
	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(strings.Repeat("a", 73))
	require.ErrorIs(t, err, failure.ErrValidation)
	assert.Contains(t, failure.AsValidation(err).Fields(), "password")
}

func TestNeedsRehashFollowsConfiguredCost(t *testing.T) {
	hash, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash("Secret123")
	require.NoError(t, err)

	assert.False(t, BcryptHasher{Cost: bcrypt.MinCost}.NeedsRehash(hash))
	assert.True(t, BcryptHasher{Cost: bcrypt.MinCost + 1}.NeedsRehash(hash))
	assert.True(t, BcryptHasher{}.NeedsRehash(hash), "zero cost means bcrypt.DefaultCost")
	assert.Equal(t, bcrypt.DefaultCost, BcryptHasher{Cost: 99}.cost())
}

func TestRandomTokenGeneratorSizes(t *testing.T) {
	token, err := RandomTokenGenerator{}.NewToken()
	require.NoError(t, err)
	assert.Len(t, token, 43)

	short, err := RandomTokenGenerator{Size: 4}.NewToken()
	require.NoError(t, err)
	assert.Len(t, short, 22)

	other, err := RandomTokenGenerator{}.NewToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
