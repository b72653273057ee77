package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "pollbooth/contexts/polls/voting-service/application"
	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/domain/services"
	"pollbooth/contexts/polls/voting-service/ports"
)

// CastVoteCommand is the write-model input for a vote submission. ChoiceID 0
// means the form was submitted without a selection.
type CastVoteCommand struct {
	UserID     string
	QuestionID int64
	ChoiceID   int64
}

// CastVoteResult reports the stored vote and how it changed.
type CastVoteResult struct {
	Vote             entities.Vote
	Created          bool
	Changed          bool
	PreviousChoiceID int64
}

// VoteUseCase gates a submission on question eligibility and choice ownership,
// then performs the single (user, question) upsert.
type VoteUseCase struct {
	Questions ports.QuestionRepository
	Votes     ports.VoteRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (CastVoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	userID := strings.TrimSpace(cmd.UserID)
	logger.Info("vote cast processing started",
		"event", "polls_vote_cast_started",
		"module", "polls/voting-service",
		"layer", "application",
		"user_id", userID,
		"question_id", cmd.QuestionID,
		"choice_id", cmd.ChoiceID,
	)
	if userID == "" {
		logger.Warn("vote cast validation failed",
			"event", "polls_vote_cast_validation_failed",
			"module", "polls/voting-service",
			"layer", "application",
			"question_id", cmd.QuestionID,
		)
		return CastVoteResult{}, domainerrors.ErrInvalidVoteInput
	}
	if cmd.QuestionID <= 0 {
		return CastVoteResult{}, domainerrors.ErrQuestionNotFound
	}

	question, err := uc.Questions.GetQuestion(ctx, cmd.QuestionID)
	if err != nil {
		return CastVoteResult{}, err
	}

	now := uc.now()
	if err := services.EnsureVotable(question, now); err != nil {
		logger.Warn("vote cast rejected by eligibility window",
			"event", "polls_vote_cast_not_eligible",
			"module", "polls/voting-service",
			"layer", "application",
			"user_id", userID,
			"question_id", question.QuestionID,
			"reason", err.Error(),
		)
		return CastVoteResult{}, err
	}

	if cmd.ChoiceID <= 0 {
		return CastVoteResult{}, domainerrors.ErrInvalidSelection
	}
	choice, err := uc.Questions.GetChoice(ctx, cmd.ChoiceID, question.QuestionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrChoiceNotFound) {
			logger.Warn("vote cast selected unknown choice",
				"event", "polls_vote_cast_invalid_selection",
				"module", "polls/voting-service",
				"layer", "application",
				"user_id", userID,
				"question_id", question.QuestionID,
				"choice_id", cmd.ChoiceID,
			)
			return CastVoteResult{}, domainerrors.ErrInvalidSelection
		}
		return CastVoteResult{}, err
	}

	voteID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return CastVoteResult{}, err
	}

	outcome, err := uc.Votes.UpsertVote(ctx, entities.Vote{
		VoteID:     voteID,
		UserID:     userID,
		QuestionID: question.QuestionID,
		ChoiceID:   choice.ChoiceID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, func(outcome ports.VoteUpsertOutcome) (ports.EventEnvelope, bool, error) {
		return buildVoteEvent(eventID, outcome, now)
	})
	if err != nil {
		return CastVoteResult{}, err
	}

	result := CastVoteResult{
		Vote:             outcome.Vote,
		Created:          !outcome.Updated,
		Changed:          !outcome.Updated || outcome.PreviousChoiceID != choice.ChoiceID,
		PreviousChoiceID: outcome.PreviousChoiceID,
	}
	logger.Info("vote cast stored",
		"event", "polls_vote_cast_stored",
		"module", "polls/voting-service",
		"layer", "application",
		"vote_id", result.Vote.VoteID,
		"user_id", result.Vote.UserID,
		"question_id", result.Vote.QuestionID,
		"choice_id", result.Vote.ChoiceID,
		"created", result.Created,
		"changed", result.Changed,
	)
	return result, nil
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func buildVoteEvent(eventID string, outcome ports.VoteUpsertOutcome, now time.Time) (ports.EventEnvelope, bool, error) {
	vote := outcome.Vote
	if outcome.Updated && outcome.PreviousChoiceID == vote.ChoiceID {
		return ports.EventEnvelope{}, false, nil
	}
	eventType := eventVoteCast
	data := map[string]any{
		"vote_id":     vote.VoteID,
		"user_id":     vote.UserID,
		"question_id": vote.QuestionID,
		"choice_id":   vote.ChoiceID,
		"occurred_at": now.Format(time.RFC3339),
	}
	if outcome.Updated {
		eventType = eventVoteChanged
		if outcome.PreviousChoiceID > 0 {
			data["previous_choice_id"] = outcome.PreviousChoiceID
		}
	}
	envelope, err := newVotingEnvelope(eventID, eventType, vote.QuestionID, now, data)
	if err != nil {
		return ports.EventEnvelope{}, false, err
	}
	return envelope, true, nil
}
