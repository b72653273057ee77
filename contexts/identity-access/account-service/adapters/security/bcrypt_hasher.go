package security

import (
	"errors"
	"sync"

	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	"pollbooth/contexts/identity-access/account-service/ports"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher stores passwords as bcrypt hashes.
type BcryptHasher struct {
	Cost int

	dummyOnce sync.Once
	dummyHash []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash string, password string) error {
	if hash == "" {
		h.dummyOnce.Do(func() {
			h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unused-dummy-secret"), h.cost())
		})
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
		return domainerrors.ErrInvalidCredentials
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return domainerrors.ErrInvalidCredentials
	}
	return err
}

func (h *BcryptHasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

var _ ports.PasswordHasher = (*BcryptHasher)(nil)
