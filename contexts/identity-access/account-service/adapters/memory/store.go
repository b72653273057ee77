package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	"pollbooth/contexts/identity-access/account-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps users, sessions and the auth outbox in process.
type Store struct {
	mu sync.RWMutex

	users      map[string]entities.User
	byUsername map[string]string
	sessions   map[string]entities.Session
	outbox     map[string]outboxRecord
	frozenNow  *time.Time
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]entities.User),
		byUsername: make(map[string]string),
		sessions:   make(map[string]entities.Session),
		outbox:     make(map[string]outboxRecord),
	}
}

// SetNow freezes the store clock; the zero time unfreezes it.
func (s *Store) SetNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.IsZero() {
		s.frozenNow = nil
		return
	}
	frozen := now.UTC()
	s.frozenNow = &frozen
}

func (s *Store) CreateUser(_ context.Context, user entities.User) (entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := usernameKey(user.Username)
	if _, exists := s.byUsername[key]; exists {
		return entities.User{}, domainerrors.ErrUsernameTaken
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	s.users[user.UserID] = user
	s.byUsername[key] = user.UserID
	return user, nil
}

func (s *Store) GetUser(_ context.Context, userID string) (entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return entities.User{}, domainerrors.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byUsername[usernameKey(username)]
	if !ok {
		return entities.User{}, domainerrors.ErrUserNotFound
	}
	return s.users[userID], nil
}

func (s *Store) RecordLogin(_ context.Context, userID string, at time.Time, event ports.EventEnvelope) error {
	record, err := newOutboxRecord(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	loginAt := at.UTC()
	user.LastLoginAt = &loginAt
	s.users[user.UserID] = user
	s.outbox[record.message.OutboxID] = record
	return nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	record, err := newOutboxRecord(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outbox[record.message.OutboxID]; exists {
		return nil
	}
	s.outbox[record.message.OutboxID] = record
	return nil
}

func (s *Store) CreateSession(_ context.Context, session entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session
	return nil
}

func (s *Store) GetSession(_ context.Context, token string, now time.Time) (entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	session, ok := s.sessions[token]
	if !ok {
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	if session.Expired(now) {
		delete(s.sessions, token)
		return entities.Session{}, domainerrors.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) DeleteSession(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token = strings.TrimSpace(token)
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if !row.published {
			items = append(items, row.message)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outboxID = strings.TrimSpace(outboxID)
	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.frozenNow != nil {
		return *s.frozenNow
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func usernameKey(username string) string {
	return strings.TrimSpace(username)
}

func newOutboxRecord(envelope ports.EventEnvelope) (outboxRecord, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxRecord{}, err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}, nil
}

var _ ports.UserRepository = (*Store)(nil)
var _ ports.AuthEventWriter = (*Store)(nil)
var _ ports.SessionStore = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
