package queries

import (
	"context"
	"errors"
	"strings"
	"time"

	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	"pollbooth/contexts/identity-access/account-service/ports"
)

// AuthenticateUseCase resolves a bearer token to the caller's identity.
type AuthenticateUseCase struct {
	Users    ports.UserRepository
	Sessions ports.SessionStore
	Clock    ports.Clock
}

func (uc AuthenticateUseCase) Authenticate(ctx context.Context, token string) (entities.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return entities.Identity{}, domainerrors.ErrUnauthenticated
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	session, err := uc.Sessions.GetSession(ctx, token, now)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) {
			return entities.Identity{}, domainerrors.ErrUnauthenticated
		}
		return entities.Identity{}, err
	}
	user, err := uc.Users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			return entities.Identity{}, domainerrors.ErrUnauthenticated
		}
		return entities.Identity{}, err
	}
	if !user.IsActive {
		return entities.Identity{}, domainerrors.ErrUnauthenticated
	}
	return entities.Identity{
		UserID:   user.UserID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	}, nil
}
