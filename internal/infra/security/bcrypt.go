package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"stayhub/internal/domain/shared/failure"
)

// BcryptHasher hashes account passwords. Cost below bcrypt.MinCost falls back to the default.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := bcrypt.DefaultCost
	if h.Cost >= bcrypt.MinCost {
		cost = h.Cost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", failure.Validation("password must be at most 72 bytes")
	}
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
