package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a PIN does not match the stored hash.
var ErrMismatch = errors.New("password: pin does not match")

// Hasher defines PIN hashing contract.
type Hasher interface {
	Hash(pin string) (string, error)
	Compare(hash, pin string) error
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt-backed hasher. Out of range costs use bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash converts a plain PIN into a bcrypt hash.
func (h *BcryptHasher) Hash(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("password: empty pin")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare checks a plain PIN against a stored hash.
func (h *BcryptHasher) Compare(hash, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
