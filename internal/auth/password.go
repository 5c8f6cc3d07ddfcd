package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password does not match")

// PasswordHasher hashes panel passwords and checks login attempts against them.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
	// Waste spends the same time as a failed Compare, for logins whose account
	// does not exist, so response time does not reveal which ids are valid.
	Waste(plain string)
}

type BcryptPasswordHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptPasswordHasherWithCost falls back to bcrypt.DefaultCost outside bcrypt's range.
func NewBcryptPasswordHasherWithCost(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("studio-booking-unused"), cost)
	if err != nil {
		panic(err)
	}
	return &BcryptPasswordHasher{
		cost:  cost,
		dummy: dummy,
	}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare returns ErrPasswordMismatch for a wrong password and the bcrypt error for a corrupt hash.
func (h *BcryptPasswordHasher) Compare(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

func (h *BcryptPasswordHasher) Waste(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}
