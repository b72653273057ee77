package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "pollbooth/contexts/identity-access/account-service/application"
	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	"pollbooth/contexts/identity-access/account-service/domain/services"
	"pollbooth/contexts/identity-access/account-service/ports"
)

const DefaultSessionTTL = 14 * 24 * time.Hour

type LoginCommand struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

type LoginResult struct {
	Session  entities.Session
	Identity entities.Identity
}

type LogoutCommand struct {
	Token     string
	IPAddress string
	UserAgent string
}

// SessionUseCase issues and revokes bearer sessions and reports each attempt
// to the account outbox.
type SessionUseCase struct {
	Users      ports.UserRepository
	Sessions   ports.SessionStore
	Events     ports.AuthEventWriter
	Hasher     ports.PasswordHasher
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

func (uc SessionUseCase) Login(ctx context.Context, cmd LoginCommand) (LoginResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	username := services.NormalizeUsername(cmd.Username)
	now := uc.now()

	user, err := uc.verify(ctx, username, cmd.Password)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrInvalidCredentials) {
			return LoginResult{}, err
		}
		logger.Warn("login failed",
			"event", "account_login_failed",
			"module", "identity-access/account-service",
			"layer", "application",
			"username", username,
			"ip_address", strings.TrimSpace(cmd.IPAddress),
		)
		if emitErr := uc.emit(ctx, EventUserLoginFailed, username, now, map[string]any{
			"username":   username,
			"ip_address": strings.TrimSpace(cmd.IPAddress),
			"user_agent": strings.TrimSpace(cmd.UserAgent),
		}); emitErr != nil {
			return LoginResult{}, emitErr
		}
		return LoginResult{}, domainerrors.ErrInvalidCredentials
	}

	token, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	session := entities.Session{
		Token:     token,
		UserID:    user.UserID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.sessionTTL()),
	}
	if err := uc.Sessions.CreateSession(ctx, session); err != nil {
		return LoginResult{}, err
	}

	event, err := uc.envelope(ctx, EventUserLoggedIn, user.Username, now, map[string]any{
		"user_id":    user.UserID,
		"username":   user.Username,
		"ip_address": strings.TrimSpace(cmd.IPAddress),
		"user_agent": strings.TrimSpace(cmd.UserAgent),
	})
	if err != nil {
		return LoginResult{}, err
	}
	if err := uc.Events.RecordLogin(ctx, user.UserID, now, event); err != nil {
		return LoginResult{}, err
	}

	logger.Info("login succeeded",
		"event", "account_login_succeeded",
		"module", "identity-access/account-service",
		"layer", "application",
		"user_id", user.UserID,
		"username", user.Username,
	)
	return LoginResult{
		Session:  session,
		Identity: identityOf(user),
	}, nil
}

// Logout revokes the session. Unknown tokens are rejected with
// ErrUnauthenticated so a stale client learns it is already signed out.
func (uc SessionUseCase) Logout(ctx context.Context, cmd LogoutCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return domainerrors.ErrUnauthenticated
	}
	now := uc.now()
	session, err := uc.Sessions.GetSession(ctx, token, now)
	if err != nil {
		if errors.Is(err, domainerrors.ErrSessionNotFound) {
			return domainerrors.ErrUnauthenticated
		}
		return err
	}
	user, err := uc.Users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			return domainerrors.ErrUnauthenticated
		}
		return err
	}
	if _, err := uc.Sessions.DeleteSession(ctx, token); err != nil {
		return err
	}
	if err := uc.emit(ctx, EventUserLoggedOut, user.Username, now, map[string]any{
		"user_id":    user.UserID,
		"username":   user.Username,
		"ip_address": strings.TrimSpace(cmd.IPAddress),
		"user_agent": strings.TrimSpace(cmd.UserAgent),
	}); err != nil {
		return err
	}
	logger.Info("logout succeeded",
		"event", "account_logout_succeeded",
		"module", "identity-access/account-service",
		"layer", "application",
		"user_id", user.UserID,
	)
	return nil
}

// verify still runs a comparison for unknown users so both failure paths take
// comparable time.
func (uc SessionUseCase) verify(ctx context.Context, username string, password string) (entities.User, error) {
	if username == "" || password == "" {
		return entities.User{}, domainerrors.ErrInvalidCredentials
	}
	user, err := uc.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			_ = uc.Hasher.Compare("", password)
			return entities.User{}, domainerrors.ErrInvalidCredentials
		}
		return entities.User{}, err
	}
	if err := uc.Hasher.Compare(user.PasswordHash, password); err != nil {
		return entities.User{}, err
	}
	if !user.IsActive {
		return entities.User{}, domainerrors.ErrInvalidCredentials
	}
	return user, nil
}

func (uc SessionUseCase) emit(
	ctx context.Context,
	eventType string,
	username string,
	now time.Time,
	data map[string]any,
) error {
	event, err := uc.envelope(ctx, eventType, username, now, data)
	if err != nil {
		return err
	}
	return uc.Events.AppendOutbox(ctx, event)
}

func (uc SessionUseCase) envelope(
	ctx context.Context,
	eventType string,
	username string,
	now time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return newAuthEnvelope(eventID, eventType, username, now, data)
}

func (uc SessionUseCase) sessionTTL() time.Duration {
	if uc.SessionTTL <= 0 {
		return DefaultSessionTTL
	}
	return uc.SessionTTL
}

func (uc SessionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func identityOf(user entities.User) entities.Identity {
	return entities.Identity{
		UserID:   user.UserID,
		Username: user.Username,
		IsStaff:  user.IsStaff,
	}
}
