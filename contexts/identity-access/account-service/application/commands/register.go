package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pollbooth/contexts/identity-access/account-service/application"
	"pollbooth/contexts/identity-access/account-service/domain/entities"
	"pollbooth/contexts/identity-access/account-service/domain/services"
	"pollbooth/contexts/identity-access/account-service/ports"
)

type RegisterUserCommand struct {
	Username  string
	Password  string
	FirstName string
	Email     string
	IsStaff   bool
}

// RegisterUseCase creates accounts for the operator CLI and fixtures. There is
// no public sign-up route.
type RegisterUseCase struct {
	Users  ports.UserRepository
	Hasher ports.PasswordHasher
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc RegisterUseCase) Register(ctx context.Context, cmd RegisterUserCommand) (entities.User, error) {
	logger := application.ResolveLogger(uc.Logger)
	username := services.NormalizeUsername(cmd.Username)
	if err := services.ValidateUsername(username); err != nil {
		return entities.User{}, err
	}
	if err := services.ValidatePassword(cmd.Password); err != nil {
		return entities.User{}, err
	}
	if err := services.ValidateEmail(cmd.Email); err != nil {
		return entities.User{}, err
	}

	hash, err := uc.Hasher.Hash(cmd.Password)
	if err != nil {
		return entities.User{}, err
	}
	userID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.User{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}

	user, err := uc.Users.CreateUser(ctx, entities.User{
		UserID:       userID,
		Username:     username,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(cmd.FirstName),
		Email:        strings.TrimSpace(cmd.Email),
		IsStaff:      cmd.IsStaff,
		IsActive:     true,
		CreatedAt:    now,
	})
	if err != nil {
		return entities.User{}, err
	}
	logger.Info("user registered",
		"event", "account_user_registered",
		"module", "identity-access/account-service",
		"layer", "application",
		"user_id", user.UserID,
		"username", user.Username,
		"is_staff", user.IsStaff,
	)
	return user, nil
}
