package postgresadapter_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	postgresadapter "pollbooth/contexts/polls/voting-service/adapters/postgres"
	"pollbooth/contexts/polls/voting-service/application/commands"
	"pollbooth/contexts/polls/voting-service/domain/entities"
	"pollbooth/internal/platform/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB migrates the voting tables into a throwaway schema on the server
// named by POSTGRES_TEST_DSN.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	admin, err := db.Connect(dsn)
	require.NoError(t, err)
	schema := "pollbooth_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	require.NoError(t, admin.DB.Exec("CREATE SCHEMA "+schema).Error)
	t.Cleanup(func() {
		_ = admin.DB.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Error
		_ = admin.Close()
	})

	scoped, err := db.Connect(withSearchPath(dsn, schema))
	require.NoError(t, err)
	t.Cleanup(func() { _ = scoped.Close() })
	require.NoError(t, scoped.Migrate(context.Background(), postgresadapter.Models()...))
	return scoped.DB
}

func withSearchPath(dsn, schema string) string {
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&search_path=" + schema
	}
	return dsn + "?search_path=" + schema
}

func seedQuestion(t *testing.T, repo *postgresadapter.Repository, choices ...string) (entities.Question, []entities.Choice) {
	t.Helper()
	items := make([]entities.Choice, 0, len(choices))
	for _, text := range choices {
		items = append(items, entities.Choice{Text: text})
	}
	question, created, err := repo.CreateQuestion(context.Background(), entities.Question{
		Text:        "favourite colour",
		PublishedAt: time.Now().UTC().Add(-time.Hour),
	}, items)
	require.NoError(t, err)
	require.Len(t, created, len(choices))
	return question, created
}

func countRows(t *testing.T, gdb *gorm.DB, table string, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Table(table).Where(query, args...).Count(&n).Error)
	return n
}

func TestUpsertVoteInsertRevoteAndNoop(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	repo := postgresadapter.NewRepository(gdb, nil)
	question, choices := seedQuestion(t, repo, "red", "green")
	uc := commands.VoteUseCase{
		Questions: repo,
		Votes:     repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
	}

	first, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: question.QuestionID, ChoiceID: choices[0].ChoiceID})
	require.NoError(t, err)
	require.True(t, first.Created)
	require.True(t, first.Changed)
	require.Zero(t, first.PreviousChoiceID)
	require.EqualValues(t, 1, countRows(t, gdb, "polls_outbox", "event_type = ?", "vote.cast"))

	second, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: question.QuestionID, ChoiceID: choices[1].ChoiceID})
	require.NoError(t, err)
	require.False(t, second.Created)
	require.True(t, second.Changed)
	require.Equal(t, choices[0].ChoiceID, second.PreviousChoiceID)
	require.Equal(t, first.Vote.VoteID, second.Vote.VoteID)
	require.EqualValues(t, 1, countRows(t, gdb, "votes", "user_id = ? AND question_id = ?", "user-1", question.QuestionID))
	require.EqualValues(t, 1, countRows(t, gdb, "polls_outbox", "event_type = ?", "vote.changed"))

	third, err := uc.CastVote(ctx, commands.CastVoteCommand{UserID: "user-1", QuestionID: question.QuestionID, ChoiceID: choices[1].ChoiceID})
	require.NoError(t, err)
	require.False(t, third.Created)
	require.False(t, third.Changed)
	require.EqualValues(t, 2, countRows(t, gdb, "polls_outbox", "1 = 1"))

	counts, err := repo.CountVotes(ctx, question.QuestionID)
	require.NoError(t, err)
	require.Equal(t, map[int64]int{choices[1].ChoiceID: 1}, counts)
}

func TestUpsertVoteConcurrentFirstVotesKeepOneRow(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	repo := postgresadapter.NewRepository(gdb, nil)
	question, choices := seedQuestion(t, repo, "red", "green")
	uc := commands.VoteUseCase{
		Questions: repo,
		Votes:     repo,
		Clock:     postgresadapter.SystemClock{},
		IDGen:     postgresadapter.UUIDGenerator{},
	}

	const workers = 8
	created := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := uc.CastVote(ctx, commands.CastVoteCommand{
				UserID:     "user-1",
				QuestionID: question.QuestionID,
				ChoiceID:   choices[i%2].ChoiceID,
			})
			if !assert.NoError(t, err) {
				return
			}
			created <- result.Created
		}(i)
	}
	wg.Wait()
	close(created)

	inserts := 0
	for c := range created {
		if c {
			inserts++
		}
	}
	require.Equal(t, 1, inserts)
	require.EqualValues(t, 1, countRows(t, gdb, "votes", "user_id = ? AND question_id = ?", "user-1", question.QuestionID))
	require.EqualValues(t, 1, countRows(t, gdb, "polls_outbox", "event_type = ?", "vote.cast"))
}

func TestQuestionDeleteCascadesToChoicesAndVotes(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	repo := postgresadapter.NewRepository(gdb, nil)
	question, choices := seedQuestion(t, repo, "red", "green")
	other, otherChoices := seedQuestion(t, repo, "blue")

	now := time.Now().UTC()
	_, err := repo.UpsertVote(ctx, entities.Vote{
		VoteID:     uuid.NewString(),
		UserID:     "user-1",
		QuestionID: question.QuestionID,
		ChoiceID:   choices[0].ChoiceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil)
	require.NoError(t, err)

	// A choice of another question cannot be recorded against this one.
	_, err = repo.UpsertVote(ctx, entities.Vote{
		VoteID:     uuid.NewString(),
		UserID:     "user-2",
		QuestionID: question.QuestionID,
		ChoiceID:   otherChoices[0].ChoiceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil)
	require.Error(t, err)

	require.NoError(t, gdb.Exec("DELETE FROM questions WHERE id = ?", question.QuestionID).Error)
	require.Zero(t, countRows(t, gdb, "choices", "question_id = ?", question.QuestionID))
	require.Zero(t, countRows(t, gdb, "votes", "question_id = ?", question.QuestionID))
	require.EqualValues(t, 1, countRows(t, gdb, "choices", "question_id = ?", other.QuestionID))
}
