package services

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	MaxPasswordBytes = 72
)

func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// ValidateUsername accepts letters, digits and @.+-_ up to 150 characters.
func ValidateUsername(username string) error {
	username = NormalizeUsername(username)
	if username == "" || utf8.RuneCountInString(username) > entities.MaxUsernameLength {
		return domainerrors.ErrInvalidUsername
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if !strings.ContainsRune("@.+-_", r) {
			return domainerrors.ErrInvalidUsername
		}
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength || len(password) > MaxPasswordBytes {
		return domainerrors.ErrInvalidPassword
	}
	if strings.TrimSpace(password) == "" {
		return domainerrors.ErrInvalidPassword
	}
	return nil
}

// ValidateEmail allows an empty address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return domainerrors.ErrInvalidEmail
	}
	return nil
}
