package security_test

import (
	"testing"

	"pollbooth/contexts/identity-access/account-service/adapters/security"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := security.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("FatChance!")
	require.NoError(t, err)
	require.NotEqual(t, "FatChance!", hash)

	require.NoError(t, hasher.Compare(hash, "FatChance!"))
	require.ErrorIs(t, hasher.Compare(hash, "WrongPassword"), domainerrors.ErrInvalidCredentials)
	require.ErrorIs(t, hasher.Compare("", "FatChance!"), domainerrors.ErrInvalidCredentials)
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, security.NewBcryptHasher(99).Cost)
	require.Equal(t, bcrypt.MinCost, security.NewBcryptHasher(bcrypt.MinCost).Cost)
}
