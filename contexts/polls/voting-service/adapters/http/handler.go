package httpadapter

import (
	"context"
	"fmt"
	"log/slog"

	"pollbooth/contexts/polls/voting-service/application/commands"
	"pollbooth/contexts/polls/voting-service/application/queries"
	"pollbooth/contexts/polls/voting-service/domain/entities"
	httptransport "pollbooth/contexts/polls/voting-service/transport/http"
)

// Handler maps transport DTOs onto the voting use cases.
type Handler struct {
	Votes     commands.VoteUseCase
	Admin     commands.QuestionAdminUseCase
	Questions queries.QuestionsUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) ListLatestHandler(ctx context.Context, limit int) (httptransport.QuestionListResponse, error) {
	items, err := h.Questions.ListLatest(ctx, limit)
	if err != nil {
		return httptransport.QuestionListResponse{}, err
	}
	return httptransport.QuestionListResponse{Items: mapQuestionViews(items)}, nil
}

func (h Handler) ListOpenHandler(ctx context.Context) (httptransport.QuestionListResponse, error) {
	items, err := h.Questions.ListOpen(ctx)
	if err != nil {
		return httptransport.QuestionListResponse{}, err
	}
	return httptransport.QuestionListResponse{Items: mapQuestionViews(items)}, nil
}

func (h Handler) DetailHandler(
	ctx context.Context,
	questionID int64,
	userID string,
) (httptransport.QuestionDetailResponse, error) {
	detail, err := h.Questions.Detail(ctx, questionID, userID)
	if err != nil {
		return httptransport.QuestionDetailResponse{}, err
	}
	resp := httptransport.QuestionDetailResponse{
		QuestionItem: mapQuestionView(detail.QuestionView),
		Choices:      mapChoices(detail.Choices),
	}
	if detail.SelectedChoiceID > 0 {
		selected := detail.SelectedChoiceID
		resp.SelectedChoiceID = &selected
	}
	return resp, nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	userID string,
	questionID int64,
	req httptransport.CastVoteRequest,
) (httptransport.CastVoteResponse, error) {
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		UserID:     userID,
		QuestionID: questionID,
		ChoiceID:   req.ChoiceID,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		VoteID:           result.Vote.VoteID,
		QuestionID:       result.Vote.QuestionID,
		ChoiceID:         result.Vote.ChoiceID,
		Created:          result.Created,
		Changed:          result.Changed,
		PreviousChoiceID: result.PreviousChoiceID,
		ResultsURL:       ResultsPath(result.Vote.QuestionID),
	}, nil
}

func (h Handler) ResultsHandler(ctx context.Context, questionID int64) (httptransport.ResultsResponse, error) {
	results, err := h.Results.QuestionResults(ctx, questionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	resp := httptransport.ResultsResponse{
		QuestionID: results.Question.QuestionID,
		Text:       results.Question.Text,
		Status:     string(results.Status),
		TotalVotes: results.TotalVotes,
		Choices:    make([]httptransport.ChoiceResult, 0, len(results.Choices)),
	}
	for _, tally := range results.Choices {
		resp.Choices = append(resp.Choices, httptransport.ChoiceResult{
			ChoiceID: tally.ChoiceID,
			Text:     tally.Text,
			Votes:    tally.Votes,
		})
	}
	return resp, nil
}

func (h Handler) CreateQuestionHandler(
	ctx context.Context,
	actor entities.Actor,
	req httptransport.CreateQuestionRequest,
) (httptransport.AdminQuestionResponse, error) {
	question, choices, err := h.Admin.CreateQuestion(ctx, commands.CreateQuestionCommand{
		Actor:       actor,
		Text:        req.Text,
		PublishedAt: req.PublishedAt,
		EndsAt:      req.EndsAt,
		Choices:     req.Choices,
	})
	if err != nil {
		return httptransport.AdminQuestionResponse{}, err
	}
	return httptransport.AdminQuestionResponse{
		QuestionItem: h.questionItem(question),
		Choices:      mapChoices(choices),
	}, nil
}

func (h Handler) UpdateQuestionHandler(
	ctx context.Context,
	actor entities.Actor,
	questionID int64,
	req httptransport.UpdateQuestionRequest,
) (httptransport.AdminQuestionResponse, error) {
	question, err := h.Admin.UpdateQuestion(ctx, commands.UpdateQuestionCommand{
		Actor:       actor,
		QuestionID:  questionID,
		Text:        req.Text,
		PublishedAt: req.PublishedAt,
		EndsAt:      req.EndsAt,
		ClearEndsAt: req.ClearEndsAt,
	})
	if err != nil {
		return httptransport.AdminQuestionResponse{}, err
	}
	choices, err := h.Questions.Questions.ListChoices(ctx, question.QuestionID)
	if err != nil {
		return httptransport.AdminQuestionResponse{}, err
	}
	return httptransport.AdminQuestionResponse{
		QuestionItem: h.questionItem(question),
		Choices:      mapChoices(choices),
	}, nil
}

func (h Handler) AddChoiceHandler(
	ctx context.Context,
	actor entities.Actor,
	questionID int64,
	req httptransport.AddChoiceRequest,
) (httptransport.ChoiceItem, error) {
	choice, err := h.Admin.AddChoice(ctx, commands.AddChoiceCommand{
		Actor:      actor,
		QuestionID: questionID,
		Text:       req.Text,
	})
	if err != nil {
		return httptransport.ChoiceItem{}, err
	}
	return httptransport.ChoiceItem{ChoiceID: choice.ChoiceID, Text: choice.Text}, nil
}

// ResultsPath is where a successful vote redirects the client.
func ResultsPath(questionID int64) string {
	return fmt.Sprintf("/v1/polls/%d/results", questionID)
}

func (h Handler) questionItem(question entities.Question) httptransport.QuestionItem {
	return mapQuestionView(h.Questions.View(question))
}

func mapQuestionViews(items []queries.QuestionView) []httptransport.QuestionItem {
	out := make([]httptransport.QuestionItem, 0, len(items))
	for _, item := range items {
		out = append(out, mapQuestionView(item))
	}
	return out
}

func mapQuestionView(item queries.QuestionView) httptransport.QuestionItem {
	return httptransport.QuestionItem{
		QuestionID:           item.Question.QuestionID,
		Text:                 item.Question.Text,
		PublishedAt:          item.Question.PublishedAt,
		EndsAt:               item.Question.EndsAt,
		Status:               string(item.Status),
		IsPublished:          item.IsPublished,
		CanVote:              item.CanVote,
		WasPublishedRecently: item.WasPublishedRecently,
	}
}

func mapChoices(choices []entities.Choice) []httptransport.ChoiceItem {
	items := make([]httptransport.ChoiceItem, 0, len(choices))
	for _, choice := range choices {
		items = append(items, httptransport.ChoiceItem{
			ChoiceID: choice.ChoiceID,
			Text:     choice.Text,
		})
	}
	return items
}
