package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"wanderlust/internal/domain/shared/failure"
)

var ErrHashMismatch = errors.New("security: password does not match")

// BcryptHasher hashes user credentials. Cost comes from PASSWORD_COST; values
// outside bcrypt's range fall back to the library default.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", failure.NewValidation("password", "must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("security: hash password: %w", err)
	}
	return string(out), nil
}

// Compare returns ErrHashMismatch for a wrong password; other errors mean the
// stored hash is unusable.
func (h BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrHashMismatch
	}
	if err != nil {
		return fmt.Errorf("security: stored hash unusable: %w", err)
	}
	return nil
}

// NeedsRehash reports whether hash was produced with a different cost.
func (h BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost()
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost && h.Cost <= bcrypt.MaxCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}
