package queries

import (
	"context"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/domain/services"
	"pollbooth/contexts/polls/voting-service/ports"
)

// ResultsUseCase recomputes per-choice counts from vote rows on every call.
type ResultsUseCase struct {
	Questions ports.QuestionRepository
	Votes     ports.VoteRepository
	Clock     ports.Clock
}

func (uc ResultsUseCase) QuestionResults(ctx context.Context, questionID int64) (entities.QuestionResults, error) {
	if questionID <= 0 {
		return entities.QuestionResults{}, domainerrors.ErrQuestionNotFound
	}
	question, err := uc.Questions.GetQuestion(ctx, questionID)
	if err != nil {
		return entities.QuestionResults{}, err
	}
	choices, err := uc.Questions.ListChoices(ctx, question.QuestionID)
	if err != nil {
		return entities.QuestionResults{}, err
	}
	counts, err := uc.Votes.CountVotes(ctx, question.QuestionID)
	if err != nil {
		return entities.QuestionResults{}, err
	}

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	results := entities.QuestionResults{
		Question: question,
		Status:   services.Lifecycle(question, now),
		Choices:  make([]entities.ChoiceTally, 0, len(choices)),
	}
	for _, choice := range choices {
		votes := counts[choice.ChoiceID]
		results.Choices = append(results.Choices, entities.ChoiceTally{
			ChoiceID: choice.ChoiceID,
			Text:     choice.Text,
			Votes:    votes,
		})
		results.TotalVotes += votes
	}
	return results, nil
}
