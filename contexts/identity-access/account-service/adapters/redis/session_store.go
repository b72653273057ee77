package redisadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	"pollbooth/contexts/identity-access/account-service/ports"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "pollbooth:session:"

// SessionStore keeps sessions as JSON values whose Redis TTL matches the
// session expiry.
type SessionStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *slog.Logger
}

type sessionRecord struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewSessionStore(client redis.UniversalClient, keyPrefix string, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &SessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

// CreateSession derives the key TTL from the session's own timestamps, which
// the caller stamps from its clock.
func (s *SessionStore) CreateSession(ctx context.Context, session entities.Session) error {
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return domainerrors.ErrSessionExpired
	}
	payload, err := json.Marshal(sessionRecord{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(session.Token), payload, ttl).Err(); err != nil {
		return s.logError("account_session_create_failed", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, token string, now time.Time) (entities.Session, error) {
	token = strings.TrimSpace(token)
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entities.Session{}, domainerrors.ErrSessionNotFound
		}
		return entities.Session{}, s.logError("account_session_get_failed", err)
	}
	var record sessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return entities.Session{}, s.logError("account_session_decode_failed", err)
	}
	session := entities.Session{
		Token:     token,
		UserID:    record.UserID,
		CreatedAt: record.CreatedAt.UTC(),
		ExpiresAt: record.ExpiresAt.UTC(),
	}
	if session.Expired(now) {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, token string) (bool, error) {
	deleted, err := s.client.Del(ctx, s.key(strings.TrimSpace(token))).Result()
	if err != nil {
		return false, s.logError("account_session_delete_failed", err)
	}
	return deleted > 0, nil
}

func (s *SessionStore) key(token string) string {
	return s.keyPrefix + token
}

func (s *SessionStore) logError(event string, err error) error {
	s.logger.Error("session store operation failed",
		"event", event,
		"module", "identity-access/account-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	return err
}

var _ ports.SessionStore = (*SessionStore)(nil)
