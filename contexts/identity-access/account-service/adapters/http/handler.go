package httpadapter

import (
	"context"
	"log/slog"

	"pollbooth/contexts/identity-access/account-service/application/commands"
	"pollbooth/contexts/identity-access/account-service/application/queries"
	"pollbooth/contexts/identity-access/account-service/domain/entities"
	httptransport "pollbooth/contexts/identity-access/account-service/transport/http"
)

type Handler struct {
	Sessions     commands.SessionUseCase
	Authenticate queries.AuthenticateUseCase
	Logger       *slog.Logger
}

func (h Handler) LoginHandler(
	ctx context.Context,
	req httptransport.LoginRequest,
	ipAddress string,
	userAgent string,
) (httptransport.LoginResponse, error) {
	result, err := h.Sessions.Login(ctx, commands.LoginCommand{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		return httptransport.LoginResponse{}, err
	}
	return httptransport.LoginResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt,
		UserID:    result.Identity.UserID,
		Username:  result.Identity.Username,
		IsStaff:   result.Identity.IsStaff,
	}, nil
}

func (h Handler) LogoutHandler(ctx context.Context, token string, ipAddress string, userAgent string) error {
	return h.Sessions.Logout(ctx, commands.LogoutCommand{
		Token:     token,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// AuthenticateHandler backs the bearer-token middleware.
func (h Handler) AuthenticateHandler(ctx context.Context, token string) (entities.Identity, error) {
	return h.Authenticate.Authenticate(ctx, token)
}

func (h Handler) MeHandler(identity entities.Identity) httptransport.MeResponse {
	return httptransport.MeResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
		IsStaff:  identity.IsStaff,
	}
}
