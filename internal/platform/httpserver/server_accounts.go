package httpserver

import (
	"errors"
	"net/http"

	accountentities "pollbooth/contexts/identity-access/account-service/domain/entities"
	accounterrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	accounthttp "pollbooth/contexts/identity-access/account-service/transport/http"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req accounthttp.LoginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.accounts.Handler.LoginHandler(r.Context(), req, resolveClientIP(r), r.UserAgent())
	if err != nil {
		writeAccountDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ accountentities.Identity) {
	token, _ := bearerToken(r)
	if err := s.accounts.Handler.LogoutHandler(r.Context(), token, resolveClientIP(r), r.UserAgent()); err != nil {
		writeAccountDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, identity accountentities.Identity) {
	writeJSON(w, http.StatusOK, s.accounts.Handler.MeHandler(identity))
}

func writeAccountDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accounterrors.ErrUnauthenticated),
		errors.Is(err, accounterrors.ErrSessionNotFound):
		writeError(w, http.StatusUnauthorized, "unauthenticated", accounterrors.ErrUnauthenticated.Error())
	case errors.Is(err, accounterrors.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, accounterrors.ErrInvalidUsername),
		errors.Is(err, accounterrors.ErrInvalidPassword),
		errors.Is(err, accounterrors.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, accounterrors.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, accounterrors.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
