package services_test

import (
	"strings"
	"testing"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/domain/services"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func question(pub time.Time, end *time.Time) entities.Question {
	return entities.Question{QuestionID: 1, Text: "What's new?", PublishedAt: pub, EndsAt: end}
}

func at(offset time.Duration) *time.Time {
	value := base.Add(offset)
	return &value
}

func TestIsPublishedIsMonotonic(t *testing.T) {
	q := question(base, nil)
	offsets := []time.Duration{-48 * time.Hour, -time.Nanosecond, 0, time.Nanosecond, time.Hour, 365 * 24 * time.Hour}
	seenPublished := false
	for _, offset := range offsets {
		published := services.IsPublished(q, base.Add(offset))
		if seenPublished {
			require.True(t, published, "offset %s", offset)
		}
		seenPublished = seenPublished || published
	}
	require.False(t, services.IsPublished(q, base.Add(-time.Nanosecond)))
	require.True(t, services.IsPublished(q, base))
}

func TestCanVoteWindowIsInclusive(t *testing.T) {
	q := question(base, at(time.Hour))

	require.False(t, services.CanVote(q, base.Add(-time.Nanosecond)))
	require.True(t, services.CanVote(q, base))
	require.True(t, services.CanVote(q, base.Add(30*time.Minute)))
	require.True(t, services.CanVote(q, base.Add(time.Hour)))
	require.False(t, services.CanVote(q, base.Add(time.Hour+time.Nanosecond)))
}

func TestCanVoteMatchesIsPublishedWithoutEnd(t *testing.T) {
	q := question(base, nil)
	for _, offset := range []time.Duration{-time.Hour, -time.Second, 0, time.Second, 10000 * time.Hour} {
		now := base.Add(offset)
		require.Equal(t, services.IsPublished(q, now), services.CanVote(q, now), "offset %s", offset)
	}
}

func TestCanVoteWithEqualPublishAndEnd(t *testing.T) {
	q := question(base, at(0))

	require.True(t, services.CanVote(q, base))
	require.False(t, services.CanVote(q, base.Add(time.Nanosecond)))
	require.Equal(t, entities.QuestionStatusClosed, services.Lifecycle(q, base.Add(time.Nanosecond)))
}

func TestWasPublishedRecently(t *testing.T) {
	now := base
	cases := []struct {
		name string
		pub  time.Time
		want bool
	}{
		{name: "future", pub: now.Add(time.Second), want: false},
		{name: "now", pub: now, want: true},
		{name: "an hour ago", pub: now.Add(-time.Hour), want: true},
		{name: "exactly a day ago", pub: now.Add(-24 * time.Hour), want: true},
		{name: "just over a day ago", pub: now.Add(-24*time.Hour - time.Second), want: false},
		{name: "thirty days ago", pub: now.Add(-30 * 24 * time.Hour), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, services.WasPublishedRecently(question(tc.pub, nil), now))
		})
	}
}

func TestLifecycleAndEnsureVotable(t *testing.T) {
	q := question(base, at(time.Hour))

	require.Equal(t, entities.QuestionStatusUnpublished, services.Lifecycle(q, base.Add(-time.Minute)))
	require.ErrorIs(t, services.EnsureVotable(q, base.Add(-time.Minute)), domainerrors.ErrNotYetPublished)

	require.Equal(t, entities.QuestionStatusOpen, services.Lifecycle(q, base.Add(time.Minute)))
	require.NoError(t, services.EnsureVotable(q, base.Add(time.Minute)))

	require.Equal(t, entities.QuestionStatusClosed, services.Lifecycle(q, base.Add(2*time.Hour)))
	require.ErrorIs(t, services.EnsureVotable(q, base.Add(2*time.Hour)), domainerrors.ErrVotingClosed)
}

func TestValidateQuestion(t *testing.T) {
	require.NoError(t, services.ValidateQuestion(question(base, nil)))
	require.NoError(t, services.ValidateQuestion(question(base, at(0))))

	long := question(base, nil)
	long.Text = strings.Repeat("x", entities.MaxQuestionTextLength+1)
	require.ErrorIs(t, services.ValidateQuestion(long), domainerrors.ErrInvalidQuestion)

	blank := question(base, nil)
	blank.Text = "   "
	require.ErrorIs(t, services.ValidateQuestion(blank), domainerrors.ErrInvalidQuestion)

	require.ErrorIs(t, services.ValidateQuestion(question(base, at(-time.Second))), domainerrors.ErrInvalidQuestion)
	require.ErrorIs(t, services.ValidateChoiceText(""), domainerrors.ErrInvalidChoice)
	require.NoError(t, services.ValidateChoiceText(strings.Repeat("é", entities.MaxChoiceTextLength)))
}
