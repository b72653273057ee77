package commands_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"pollbooth/contexts/polls/voting-service/adapters/memory"
	"pollbooth/contexts/polls/voting-service/application/commands"
	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func seedQuestion(
	t *testing.T,
	store *memory.Store,
	pub time.Time,
	end *time.Time,
	choices ...string,
) (entities.Question, []entities.Choice) {
	t.Helper()
	items := make([]entities.Choice, 0, len(choices))
	for _, text := range choices {
		items = append(items, entities.Choice{Text: text, CreatedAt: pub})
	}
	q, created, err := store.CreateQuestion(context.Background(), entities.Question{
		Text:        "Which colour?",
		PublishedAt: pub,
		EndsAt:      end,
		CreatedAt:   pub,
		UpdatedAt:   pub,
	}, items)
	require.NoError(t, err)
	return q, created
}

func newVoteUseCase(store *memory.Store) commands.VoteUseCase {
	return commands.VoteUseCase{
		Questions: store,
		Votes:     store,
		Clock:     store,
		IDGen:     store,
	}
}

func TestCastVoteOnOpenQuestionInsertsVoteAndEvent(t *testing.T) {
	store := memory.NewStore()
	store.SetNow(now)
	q, choices := seedQuestion(t, store, now.Add(-30*24*time.Hour), nil, "red", "blue")

	result, err := newVoteUseCase(store).CastVote(context.Background(), commands.CastVoteCommand{
		UserID:     "user-1",
		QuestionID: q.QuestionID,
		ChoiceID:   choices[0].ChoiceID,
	})
	require.NoError(t, err)
	require.True(t, result.Created)
	require.True(t, result.Changed)
	require.Equal(t, choices[0].ChoiceID, result.Vote.ChoiceID)
	require.NotEmpty(t, result.Vote.VoteID)

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "vote.cast", pending[0].EventType)

	var envelope struct {
		PartitionKey string `json:"partition_key"`
		Data         struct {
			ChoiceID int64  `json:"choice_id"`
			UserID   string `json:"user_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pending[0].Payload, &envelope))
	require.Equal(t, choices[0].ChoiceID, envelope.Data.ChoiceID)
	require.Equal(t, "user-1", envelope.Data.UserID)
}

func TestCastVoteRejectsFutureQuestion(t *testing.T) {
	store := memory.NewStore()
	store.SetNow(now)
	q, choices := seedQuestion(t, store, now.Add(10*24*time.Hour), nil, "red")

	_, err := newVoteUseCase(store).CastVote(context.Background(), commands.CastVoteCommand{
		UserID:     "user-1",
		QuestionID: q.QuestionID,
		ChoiceID:   choices[0].ChoiceID,
	})
	require.ErrorIs(t, err, domainerrors.ErrNotYetPublished)
	require.Empty(t, store.VoteRows())
}

func TestCastVoteRejectsClosedQuestion(t *testing.T) {
	store := memory.NewStore()
	store.SetNow(now)
	end := now.Add(-5 * 24 * time.Hour)
	q, choices := seedQuestion(t, store, now.Add(-10*24*time.Hour), &end, "red")

	_, err := newVoteUseCase(store).CastVote(context.Background(), commands.CastVoteCommand{
		UserID:     "user-1",
		QuestionID: q.QuestionID,
		ChoiceID:   choices[0].ChoiceID,
	})
	require.ErrorIs(t, err, domainerrors.ErrVotingClosed)
	require.Empty(t, store.VoteRows())
}

func TestCastVoteRevoteMovesCount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetNow(now)
	q, choices := seedQuestion(t, store, now.Add(-time.Hour), nil, "A", "B")
	a, b := choices[0].ChoiceID, choices[1].ChoiceID
	uc := newVoteUseCase(store)

	beforeA, err := store.CountChoiceVotes(ctx, a)
	require.NoError(t, err)
	beforeB, err := store.CountChoiceVotes(ctx, b)
	require.NoError(t, err)

	first, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: q.QuestionID, ChoiceID: a})
	require.NoError(t, err)
	second, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: q.QuestionID, ChoiceID: b})
	require.NoError(t, err)

	require.False(t, second.Created)
	require.True(t, second.Changed)
	require.Equal(t, a, second.PreviousChoiceID)
	require.Equal(t, first.Vote.VoteID, second.Vote.VoteID)

	rows := store.VoteRows()
	require.Len(t, rows, 1)
	require.Equal(t, b, rows[0].ChoiceID)

	afterA, err := store.CountChoiceVotes(ctx, a)
	require.NoError(t, err)
	afterB, err := store.CountChoiceVotes(ctx, b)
	require.NoError(t, err)
	require.Equal(t, beforeA, afterA)
	require.Equal(t, beforeB+1, afterB)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "vote.cast", pending[0].EventType)
	require.Equal(t, "vote.changed", pending[1].EventType)
}

func TestCastVoteSameChoiceIsNoop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetNow(now)
	q, choices := seedQuestion(t, store, now.Add(-time.Hour), nil, "A")
	uc := newVoteUseCase(store)
	cmd := commands.CastVoteCommand{UserID: "user-1", QuestionID: q.QuestionID, ChoiceID: choices[0].ChoiceID}

	_, err := uc.CastVote(ctx, cmd)
	require.NoError(t, err)
	again, err := uc.CastVote(ctx, cmd)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.False(t, again.Changed)

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Len(t, store.VoteRows(), 1)
}

func TestCastVoteUpsertKeepsTotalUnchanged(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetNow(now)
	q, choices := seedQuestion(t, store, now.Add(-time.Hour), nil, "A", "B", "C")
	uc := newVoteUseCase(store)

	for _, user := range []string{"user-1", "user-2"} {
		_, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: user, QuestionID: q.QuestionID, ChoiceID: choices[0].ChoiceID})
		require.NoError(t, err)
	}
	for _, choice := range choices {
		_, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: q.QuestionID, ChoiceID: choice.ChoiceID})
		require.NoError(t, err)

		counts, err := store.CountVotes(ctx, q.QuestionID)
		require.NoError(t, err)
		total := 0
		for _, count := range counts {
			total += count
		}
		require.Equal(t, 2, total)
	}
}

func TestCastVoteConcurrentSubmissionsKeepOneRow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetNow(now)
	q, choices := seedQuestion(t, store, now.Add(-time.Hour), nil, "A", "B")
	uc := newVoteUseCase(store)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.CastVote(ctx, commands.CastVoteCommand{
				UserID:     "user-1",
				QuestionID: q.QuestionID,
				ChoiceID:   choices[i%2].ChoiceID,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.Len(t, store.VoteRows(), 1)
}

func TestCastVoteSelectionErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.SetNow(now)
	q, _ := seedQuestion(t, store, now.Add(-time.Hour), nil, "A")
	_, otherChoices := seedQuestion(t, store, now.Add(-time.Hour), nil, "X")
	uc := newVoteUseCase(store)

	_, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: q.QuestionID})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSelection)

	_, err = uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: q.QuestionID, ChoiceID: otherChoices[0].ChoiceID})
	require.ErrorIs(t, err, domainerrors.ErrInvalidSelection)

	_, err = uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: 999, ChoiceID: 1})
	require.ErrorIs(t, err, domainerrors.ErrQuestionNotFound)

	_, err = uc.CastVote(ctx, commands.CastVoteCommand{QuestionID: q.QuestionID, ChoiceID: 1})
	require.ErrorIs(t, err, domainerrors.ErrInvalidVoteInput)
}
