package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword reports a password that does not match its hash.
var ErrInvalidPassword = errors.New("password mismatch")

// HashPassword hashes plain with bcrypt. Costs above bcrypt's ceiling are
// clamped; costs below its floor fall back to bcrypt's default.
func HashPassword(plain string, cost int) (string, error) {
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword returns ErrInvalidPassword on mismatch. Any other error
// means the stored hash itself is unusable.
func ComparePassword(hashed, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrInvalidPassword
	}
	return err
}
