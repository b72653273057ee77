package ports

import (
	"context"
	"time"

	"pollbooth/contexts/identity-access/account-service/domain/entities"
	"pollbooth/internal/shared/events"
	"pollbooth/internal/shared/outbox"
)

type UserRepository interface {
	// CreateUser fails with ErrUsernameTaken when the username exists.
	CreateUser(ctx context.Context, user entities.User) (entities.User, error)
	GetUser(ctx context.Context, userID string) (entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (entities.User, error)
}

// AuthEventWriter appends auth events to the account outbox. RecordLogin also
// stamps the user's last login in the same unit of work.
type AuthEventWriter interface {
	RecordLogin(ctx context.Context, userID string, at time.Time, event EventEnvelope) error
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session entities.Session) error
	// GetSession fails with ErrSessionNotFound for unknown or expired tokens.
	GetSession(ctx context.Context, token string, now time.Time) (entities.Session, error)
	DeleteSession(ctx context.Context, token string) (bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrInvalidCredentials when password does not match. An
	// empty hash never matches but costs the same as a real comparison.
	Compare(hash string, password string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = events.Envelope

type OutboxMessage = outbox.Message

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
