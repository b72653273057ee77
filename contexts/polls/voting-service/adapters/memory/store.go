package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type voteKey struct {
	userID     string
	questionID int64
}

// Store is the in-process adapter used by tests and local runs. A single
// mutex serializes every write, which makes UpsertVote atomic.
type Store struct {
	mu sync.RWMutex

	questions    map[int64]entities.Question
	choices      map[int64]entities.Choice
	votes        map[voteKey]entities.Vote
	outbox       map[string]outboxRecord
	nextQuestion int64
	nextChoice   int64
	frozenNow    *time.Time
}

func NewStore() *Store {
	return &Store{
		questions: make(map[int64]entities.Question),
		choices:   make(map[int64]entities.Choice),
		votes:     make(map[voteKey]entities.Vote),
		outbox:    make(map[string]outboxRecord),
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

func (s *Store) GetQuestion(_ context.Context, questionID int64) (entities.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[questionID]
	if !ok {
		return entities.Question{}, domainerrors.ErrQuestionNotFound
	}
	return question, nil
}

func (s *Store) ListQuestions(_ context.Context, filter ports.QuestionFilter) ([]entities.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Question, 0, len(s.questions))
	for _, question := range s.questions {
		if filter.OpenAt != nil {
			at := *filter.OpenAt
			if at.Before(question.PublishedAt) || (question.EndsAt != nil && at.After(*question.EndsAt)) {
				continue
			}
		}
		items = append(items, question)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].PublishedAt.Equal(items[j].PublishedAt) {
			return items[i].QuestionID > items[j].QuestionID
		}
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) CreateQuestion(
	_ context.Context,
	question entities.Question,
	choices []entities.Choice,
) (entities.Question, []entities.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextQuestion++
	question.QuestionID = s.nextQuestion
	s.questions[question.QuestionID] = question

	created := make([]entities.Choice, 0, len(choices))
	for _, choice := range choices {
		s.nextChoice++
		choice.ChoiceID = s.nextChoice
		choice.QuestionID = question.QuestionID
		s.choices[choice.ChoiceID] = choice
		created = append(created, choice)
	}
	return question, created, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question entities.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.QuestionID]; !ok {
		return domainerrors.ErrQuestionNotFound
	}
	s.questions[question.QuestionID] = question
	return nil
}

func (s *Store) AddChoice(_ context.Context, choice entities.Choice) (entities.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[choice.QuestionID]; !ok {
		return entities.Choice{}, domainerrors.ErrQuestionNotFound
	}
	s.nextChoice++
	choice.ChoiceID = s.nextChoice
	s.choices[choice.ChoiceID] = choice
	return choice, nil
}

func (s *Store) ListChoices(_ context.Context, questionID int64) ([]entities.Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Choice, 0)
	for _, choice := range s.choices {
		if choice.QuestionID == questionID {
			items = append(items, choice)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ChoiceID < items[j].ChoiceID
	})
	return items, nil
}

func (s *Store) GetChoice(_ context.Context, choiceID int64, questionID int64) (entities.Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	choice, ok := s.choices[choiceID]
	if !ok || choice.QuestionID != questionID {
		return entities.Choice{}, domainerrors.ErrChoiceNotFound
	}
	return choice, nil
}

func (s *Store) GetVoteByUser(_ context.Context, userID string, questionID int64) (entities.Vote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, ok := s.votes[voteKey{userID: strings.TrimSpace(userID), questionID: questionID}]
	return vote, ok, nil
}

func (s *Store) UpsertVote(
	_ context.Context,
	vote entities.Vote,
	newEvent ports.VoteEventFactory,
) (ports.VoteUpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{userID: strings.TrimSpace(vote.UserID), questionID: vote.QuestionID}
	outcome := ports.VoteUpsertOutcome{}
	stored := vote
	if existing, ok := s.votes[key]; ok {
		outcome.Updated = true
		outcome.PreviousChoiceID = existing.ChoiceID
		stored = existing
		stored.ChoiceID = vote.ChoiceID
		stored.UpdatedAt = vote.UpdatedAt
	}
	outcome.Vote = stored

	var pending *outboxRecord
	if newEvent != nil {
		envelope, ok, err := newEvent(outcome)
		if err != nil {
			return ports.VoteUpsertOutcome{}, err
		}
		if ok {
			record, err := newOutboxRecord(envelope)
			if err != nil {
				return ports.VoteUpsertOutcome{}, err
			}
			if _, exists := s.outbox[record.message.OutboxID]; exists {
				return ports.VoteUpsertOutcome{}, domainerrors.ErrConflict
			}
			pending = &record
		}
	}

	// Vote and outbox row become visible together.
	s.votes[key] = stored
	if pending != nil {
		s.outbox[pending.message.OutboxID] = *pending
	}
	return outcome, nil
}

func (s *Store) CountVotes(_ context.Context, questionID int64) (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int64]int)
	for key, vote := range s.votes {
		if key.questionID == questionID {
			counts[vote.ChoiceID]++
		}
	}
	return counts, nil
}

// CountChoiceVotes counts the votes currently assigned to one choice.
func (s *Store) CountChoiceVotes(_ context.Context, choiceID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, vote := range s.votes {
		if vote.ChoiceID == choiceID {
			count++
		}
	}
	return count, nil
}

// VoteRows returns every stored vote, for assertions in tests.
func (s *Store) VoteRows() []entities.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0, len(s.votes))
	for _, vote := range s.votes {
		items = append(items, vote)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
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
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
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

var _ ports.QuestionRepository = (*Store)(nil)
var _ ports.VoteRepository = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
