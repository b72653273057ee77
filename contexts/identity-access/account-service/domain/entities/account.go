package entities

import "time"

const MaxUsernameLength = 150

type User struct {
	UserID       string
	Username     string
	PasswordHash string
	FirstName    string
	Email        string
	IsStaff      bool
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Session is an opaque bearer token bound to one user until ExpiresAt.
type Session struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity is what other contexts learn about an authenticated caller.
type Identity struct {
	UserID   string
	Username string
	IsStaff  bool
}
