package commands

import (
	"time"

	"pollbooth/contexts/identity-access/account-service/ports"
	"pollbooth/internal/shared/events"
)

const (
	EventUserLoggedIn    = "user.logged_in"
	EventUserLoggedOut   = "user.logged_out"
	EventUserLoginFailed = "user.login_failed"
)

// AuthEventTypes lists every topic the account outbox produces.
var AuthEventTypes = []string{EventUserLoggedIn, EventUserLoggedOut, EventUserLoginFailed}

func newAuthEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	return events.NewEnvelope(
		eventID,
		eventType,
		"account-service",
		"username",
		partitionKey,
		occurredAt,
		data,
	)
}
