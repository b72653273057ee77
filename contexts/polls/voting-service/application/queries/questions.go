package queries

import (
	"context"
	"strings"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/domain/services"
	"pollbooth/contexts/polls/voting-service/ports"
)

const (
	DefaultLatestLimit = 5
	MaxListLimit       = 50
)

// QuestionView is a question annotated with the eligibility flags evaluated
// at read time.
type QuestionView struct {
	Question             entities.Question
	IsPublished          bool
	CanVote              bool
	WasPublishedRecently bool
	Status               entities.QuestionStatus
}

type QuestionDetail struct {
	QuestionView
	Choices []entities.Choice
	// SelectedChoiceID is the caller's current vote, zero when none.
	SelectedChoiceID int64
}

type QuestionsUseCase struct {
	Questions ports.QuestionRepository
	Votes     ports.VoteRepository
	Clock     ports.Clock
}

// ListLatest returns the most recently published questions, unpublished ones
// included, so callers can badge them as closed.
func (uc QuestionsUseCase) ListLatest(ctx context.Context, limit int) ([]QuestionView, error) {
	if limit <= 0 {
		limit = DefaultLatestLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	questions, err := uc.Questions.ListQuestions(ctx, ports.QuestionFilter{Limit: limit})
	if err != nil {
		return nil, err
	}
	return uc.annotate(questions), nil
}

// ListOpen returns every question accepting votes now. It is not paginated.
func (uc QuestionsUseCase) ListOpen(ctx context.Context) ([]QuestionView, error) {
	now := uc.now()
	questions, err := uc.Questions.ListQuestions(ctx, ports.QuestionFilter{OpenAt: &now})
	if err != nil {
		return nil, err
	}
	return uc.annotate(questions), nil
}

// Detail hides unpublished questions behind ErrNotYetPublished. userID may be
// empty for anonymous readers.
func (uc QuestionsUseCase) Detail(ctx context.Context, questionID int64, userID string) (QuestionDetail, error) {
	if questionID <= 0 {
		return QuestionDetail{}, domainerrors.ErrQuestionNotFound
	}
	question, err := uc.Questions.GetQuestion(ctx, questionID)
	if err != nil {
		return QuestionDetail{}, err
	}
	now := uc.now()
	if !services.IsPublished(question, now) {
		return QuestionDetail{}, domainerrors.ErrNotYetPublished
	}
	choices, err := uc.Questions.ListChoices(ctx, question.QuestionID)
	if err != nil {
		return QuestionDetail{}, err
	}

	detail := QuestionDetail{
		QuestionView: view(question, now),
		Choices:      choices,
	}
	if userID = strings.TrimSpace(userID); userID != "" {
		vote, found, err := uc.Votes.GetVoteByUser(ctx, userID, question.QuestionID)
		if err != nil {
			return QuestionDetail{}, err
		}
		if found {
			detail.SelectedChoiceID = vote.ChoiceID
		}
	}
	return detail, nil
}

// View annotates a single question against the current clock.
func (uc QuestionsUseCase) View(question entities.Question) QuestionView {
	return view(question, uc.now())
}

func (uc QuestionsUseCase) annotate(questions []entities.Question) []QuestionView {
	now := uc.now()
	items := make([]QuestionView, 0, len(questions))
	for _, question := range questions {
		items = append(items, view(question, now))
	}
	return items
}

func (uc QuestionsUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func view(question entities.Question, now time.Time) QuestionView {
	return QuestionView{
		Question:             question,
		IsPublished:          services.IsPublished(question, now),
		CanVote:              services.CanVote(question, now),
		WasPublishedRecently: services.WasPublishedRecently(question, now),
		Status:               services.Lifecycle(question, now),
	}
}
