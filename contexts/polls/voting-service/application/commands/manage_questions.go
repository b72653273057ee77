package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "pollbooth/contexts/polls/voting-service/application"
	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/domain/services"
	"pollbooth/contexts/polls/voting-service/ports"
)

type CreateQuestionCommand struct {
	Actor       entities.Actor
	Text        string
	PublishedAt *time.Time
	EndsAt      *time.Time
	Choices     []string
}

// UpdateQuestionCommand applies a partial edit. Nil fields are left unchanged;
// ClearEndsAt removes the closing time.
type UpdateQuestionCommand struct {
	Actor       entities.Actor
	QuestionID  int64
	Text        *string
	PublishedAt *time.Time
	EndsAt      *time.Time
	ClearEndsAt bool
}

type AddChoiceCommand struct {
	Actor      entities.Actor
	QuestionID int64
	Text       string
}

// QuestionAdminUseCase covers the staff-only edits to questions and choices.
type QuestionAdminUseCase struct {
	Questions ports.QuestionRepository
	Clock     ports.Clock
	Logger    *slog.Logger
}

func (uc QuestionAdminUseCase) CreateQuestion(
	ctx context.Context,
	cmd CreateQuestionCommand,
) (entities.Question, []entities.Choice, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := ensureStaff(cmd.Actor); err != nil {
		logger.Warn("question create forbidden",
			"event", "polls_question_create_forbidden",
			"module", "polls/voting-service",
			"layer", "application",
			"actor_id", strings.TrimSpace(cmd.Actor.UserID),
		)
		return entities.Question{}, nil, err
	}

	now := uc.now()
	question := entities.Question{
		Text:        strings.TrimSpace(cmd.Text),
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if cmd.PublishedAt != nil {
		question.PublishedAt = cmd.PublishedAt.UTC()
	}
	if cmd.EndsAt != nil {
		endsAt := cmd.EndsAt.UTC()
		question.EndsAt = &endsAt
	}
	if err := services.ValidateQuestion(question); err != nil {
		return entities.Question{}, nil, err
	}

	choices := make([]entities.Choice, 0, len(cmd.Choices))
	for _, text := range cmd.Choices {
		if err := services.ValidateChoiceText(text); err != nil {
			return entities.Question{}, nil, err
		}
		choices = append(choices, entities.Choice{
			Text:      strings.TrimSpace(text),
			CreatedAt: now,
		})
	}

	created, createdChoices, err := uc.Questions.CreateQuestion(ctx, question, choices)
	if err != nil {
		return entities.Question{}, nil, err
	}
	logger.Info("question created",
		"event", "polls_question_created",
		"module", "polls/voting-service",
		"layer", "application",
		"question_id", created.QuestionID,
		"actor_id", strings.TrimSpace(cmd.Actor.UserID),
		"choice_count", len(createdChoices),
	)
	return created, createdChoices, nil
}

func (uc QuestionAdminUseCase) UpdateQuestion(ctx context.Context, cmd UpdateQuestionCommand) (entities.Question, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := ensureStaff(cmd.Actor); err != nil {
		return entities.Question{}, err
	}

	question, err := uc.Questions.GetQuestion(ctx, cmd.QuestionID)
	if err != nil {
		return entities.Question{}, err
	}
	if cmd.Text != nil {
		question.Text = strings.TrimSpace(*cmd.Text)
	}
	if cmd.PublishedAt != nil {
		question.PublishedAt = cmd.PublishedAt.UTC()
	}
	switch {
	case cmd.ClearEndsAt:
		question.EndsAt = nil
	case cmd.EndsAt != nil:
		endsAt := cmd.EndsAt.UTC()
		question.EndsAt = &endsAt
	}
	if err := services.ValidateQuestion(question); err != nil {
		return entities.Question{}, err
	}
	question.UpdatedAt = uc.now()

	if err := uc.Questions.UpdateQuestion(ctx, question); err != nil {
		return entities.Question{}, err
	}
	logger.Info("question updated",
		"event", "polls_question_updated",
		"module", "polls/voting-service",
		"layer", "application",
		"question_id", question.QuestionID,
		"actor_id", strings.TrimSpace(cmd.Actor.UserID),
	)
	return question, nil
}

func (uc QuestionAdminUseCase) AddChoice(ctx context.Context, cmd AddChoiceCommand) (entities.Choice, error) {
	logger := application.ResolveLogger(uc.Logger)
	if err := ensureStaff(cmd.Actor); err != nil {
		return entities.Choice{}, err
	}
	if err := services.ValidateChoiceText(cmd.Text); err != nil {
		return entities.Choice{}, err
	}
	if _, err := uc.Questions.GetQuestion(ctx, cmd.QuestionID); err != nil {
		return entities.Choice{}, err
	}

	choice, err := uc.Questions.AddChoice(ctx, entities.Choice{
		QuestionID: cmd.QuestionID,
		Text:       strings.TrimSpace(cmd.Text),
		CreatedAt:  uc.now(),
	})
	if err != nil {
		return entities.Choice{}, err
	}
	logger.Info("choice added",
		"event", "polls_choice_added",
		"module", "polls/voting-service",
		"layer", "application",
		"question_id", choice.QuestionID,
		"choice_id", choice.ChoiceID,
		"actor_id", strings.TrimSpace(cmd.Actor.UserID),
	)
	return choice, nil
}

func (uc QuestionAdminUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func ensureStaff(actor entities.Actor) error {
	if strings.TrimSpace(actor.UserID) == "" || !actor.IsStaff {
		return domainerrors.ErrForbidden
	}
	return nil
}
