package errors

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expires before it starts")
	ErrOutboxNotFound     = errors.New("outbox message not found")
)
