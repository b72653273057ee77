package ports

import (
	"context"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	"pollbooth/internal/shared/events"
	"pollbooth/internal/shared/outbox"
)

// QuestionFilter narrows question listings. Results are always ordered by
// PublishedAt descending, then QuestionID descending.
type QuestionFilter struct {
	// Limit caps the listing; zero means unlimited.
	Limit int
	// OpenAt restricts the listing to questions accepting votes at that time.
	OpenAt *time.Time
}

type QuestionRepository interface {
	GetQuestion(ctx context.Context, questionID int64) (entities.Question, error)
	ListQuestions(ctx context.Context, filter QuestionFilter) ([]entities.Question, error)
	// CreateQuestion assigns surrogate ids to the question and its choices.
	CreateQuestion(ctx context.Context, question entities.Question, choices []entities.Choice) (entities.Question, []entities.Choice, error)
	UpdateQuestion(ctx context.Context, question entities.Question) error
	AddChoice(ctx context.Context, choice entities.Choice) (entities.Choice, error)
	// ListChoices returns the question's choices ordered by ChoiceID ascending.
	ListChoices(ctx context.Context, questionID int64) ([]entities.Choice, error)
	// GetChoice fails with ErrChoiceNotFound when the choice is absent or
	// belongs to another question.
	GetChoice(ctx context.Context, choiceID int64, questionID int64) (entities.Choice, error)
}

// VoteUpsertOutcome describes what UpsertVote did. PreviousChoiceID is zero for
// inserts and for updates that raced with a concurrent insert.
type VoteUpsertOutcome struct {
	Vote             entities.Vote
	Updated          bool
	PreviousChoiceID int64
}

// VoteEventFactory builds the outbox event for an upsert once its outcome is
// known. Returning ok=false skips the outbox write.
type VoteEventFactory func(outcome VoteUpsertOutcome) (event EventEnvelope, ok bool, err error)

type VoteRepository interface {
	GetVoteByUser(ctx context.Context, userID string, questionID int64) (entities.Vote, bool, error)
	// UpsertVote atomically inserts or reassigns the single vote keyed by
	// (UserID, QuestionID) and appends the factory's event in the same unit
	// of work.
	UpsertVote(ctx context.Context, vote entities.Vote, newEvent VoteEventFactory) (VoteUpsertOutcome, error)
	// CountVotes returns live vote counts keyed by choice id. Choices without
	// votes are absent from the map.
	CountVotes(ctx context.Context, questionID int64) (map[int64]int, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// EventEnvelope reuses the canonical envelope contract.
type EventEnvelope = events.Envelope

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage = outbox.Message

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
