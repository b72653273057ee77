package commands_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pollbooth/contexts/identity-access/account-service/adapters/memory"
	"pollbooth/contexts/identity-access/account-service/adapters/security"
	"pollbooth/contexts/identity-access/account-service/application/commands"
	"pollbooth/contexts/identity-access/account-service/application/queries"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var now = time.Date(2026, 7, 4, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store    *memory.Store
	register commands.RegisterUseCase
	sessions commands.SessionUseCase
	auth     queries.AuthenticateUseCase
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	store.SetNow(now)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	f := fixture{
		store:    store,
		register: commands.RegisterUseCase{Users: store, Hasher: hasher, Clock: store, IDGen: store},
		sessions: commands.SessionUseCase{
			Users:      store,
			Sessions:   store,
			Events:     store,
			Hasher:     hasher,
			Clock:      store,
			IDGen:      store,
			SessionTTL: time.Hour,
		},
		auth: queries.AuthenticateUseCase{Users: store, Sessions: store, Clock: store},
	}
	_, err := f.register.Register(context.Background(), commands.RegisterUserCommand{
		Username:  "testuser",
		Password:  "FatChance!",
		FirstName: "Tester",
		Email:     "testuser@nowhere.com",
	})
	require.NoError(t, err)
	return f
}

func pendingTypes(t *testing.T, store *memory.Store) []string {
	t.Helper()
	pending, err := store.ListPendingOutbox(context.Background(), 100)
	require.NoError(t, err)
	types := make([]string, 0, len(pending))
	for _, message := range pending {
		types = append(types, message.EventType)
	}
	return types
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	_, err := f.register.Register(context.Background(), commands.RegisterUserCommand{
		Username: "testuser",
		Password: "AnotherOne1",
	})
	require.ErrorIs(t, err, domainerrors.ErrUsernameTaken)

	_, err = f.register.Register(context.Background(), commands.RegisterUserCommand{Username: "x y", Password: "AnotherOne1"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidUsername)
}

func TestLoginIssuesSessionAndEmitsEvent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.sessions.Login(ctx, commands.LoginCommand{
		Username:  "testuser",
		Password:  "FatChance!",
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Session.Token)
	require.True(t, result.Session.ExpiresAt.Equal(now.Add(time.Hour)))
	require.Equal(t, "testuser", result.Identity.Username)
	require.False(t, result.Identity.IsStaff)

	user, err := f.store.GetUserByUsername(ctx, "testuser")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
	require.Equal(t, []string{commands.EventUserLoggedIn}, pendingTypes(t, f.store))

	pending, err := f.store.ListPendingOutbox(ctx, 1)
	require.NoError(t, err)
	var envelope struct {
		Data struct {
			IPAddress string `json:"ip_address"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pending[0].Payload, &envelope))
	require.Equal(t, "10.0.0.1", envelope.Data.IPAddress)

	identity, err := f.auth.Authenticate(ctx, result.Session.Token)
	require.NoError(t, err)
	require.Equal(t, user.UserID, identity.UserID)
}

func TestLoginFailureEmitsLoginFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.sessions.Login(ctx, commands.LoginCommand{Username: "testuser", Password: "WrongPassword"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = f.sessions.Login(ctx, commands.LoginCommand{Username: "nobody", Password: "FatChance!"})
	require.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	require.Equal(t, []string{commands.EventUserLoginFailed, commands.EventUserLoginFailed}, pendingTypes(t, f.store))
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	result, err := f.sessions.Login(ctx, commands.LoginCommand{Username: "testuser", Password: "FatChance!"})
	require.NoError(t, err)

	require.NoError(t, f.sessions.Logout(ctx, commands.LogoutCommand{Token: result.Session.Token}))
	_, err = f.auth.Authenticate(ctx, result.Session.Token)
	require.ErrorIs(t, err, domainerrors.ErrUnauthenticated)

	err = f.sessions.Logout(ctx, commands.LogoutCommand{Token: result.Session.Token})
	require.ErrorIs(t, err, domainerrors.ErrUnauthenticated)

	require.ElementsMatch(t, []string{commands.EventUserLoggedIn, commands.EventUserLoggedOut}, pendingTypes(t, f.store))
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	result, err := f.sessions.Login(ctx, commands.LoginCommand{Username: "testuser", Password: "FatChance!"})
	require.NoError(t, err)

	f.store.SetNow(now.Add(time.Hour))
	_, err = f.auth.Authenticate(ctx, result.Session.Token)
	require.ErrorIs(t, err, domainerrors.ErrUnauthenticated)

	_, err = f.auth.Authenticate(ctx, "")
	require.ErrorIs(t, err, domainerrors.ErrUnauthenticated)
}
