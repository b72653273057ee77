package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type QuestionItem struct {
	QuestionID           int64      `json:"question_id"`
	Text                 string     `json:"question_text"`
	PublishedAt          time.Time  `json:"pub_date"`
	EndsAt               *time.Time `json:"end_date,omitempty"`
	Status               string     `json:"status"`
	IsPublished          bool       `json:"is_published"`
	CanVote              bool       `json:"can_vote"`
	WasPublishedRecently bool       `json:"was_published_recently"`
}

type QuestionListResponse struct {
	Items []QuestionItem `json:"items"`
}

type ChoiceItem struct {
	ChoiceID int64  `json:"choice_id"`
	Text     string `json:"choice_text"`
}

type QuestionDetailResponse struct {
	QuestionItem
	Choices          []ChoiceItem `json:"choices"`
	SelectedChoiceID *int64       `json:"selected_choice_id,omitempty"`
}

// CastVoteRequest carries the selected choice. A missing or zero choice_id is
// reported as no_choice_selected, so the field is not validated here.
type CastVoteRequest struct {
	ChoiceID int64 `json:"choice_id"`
}

type CastVoteResponse struct {
	VoteID           string `json:"vote_id"`
	QuestionID       int64  `json:"question_id"`
	ChoiceID         int64  `json:"choice_id"`
	Created          bool   `json:"created"`
	Changed          bool   `json:"changed"`
	PreviousChoiceID int64  `json:"previous_choice_id,omitempty"`
	ResultsURL       string `json:"results_url"`
}

type ChoiceResult struct {
	ChoiceID int64  `json:"choice_id"`
	Text     string `json:"choice_text"`
	Votes    int    `json:"votes"`
}

type ResultsResponse struct {
	QuestionID int64          `json:"question_id"`
	Text       string         `json:"question_text"`
	Status     string         `json:"status"`
	TotalVotes int            `json:"total_votes"`
	Choices    []ChoiceResult `json:"choices"`
}

type CreateQuestionRequest struct {
	Text        string     `json:"question_text" validate:"required,max=200"`
	PublishedAt *time.Time `json:"pub_date,omitempty"`
	EndsAt      *time.Time `json:"end_date,omitempty"`
	Choices     []string   `json:"choices" validate:"omitempty,max=50,dive,required,max=200"`
}

type UpdateQuestionRequest struct {
	Text        *string    `json:"question_text,omitempty" validate:"omitempty,min=1,max=200"`
	PublishedAt *time.Time `json:"pub_date,omitempty"`
	EndsAt      *time.Time `json:"end_date,omitempty"`
	ClearEndsAt bool       `json:"clear_end_date,omitempty"`
}

type AddChoiceRequest struct {
	Text string `json:"choice_text" validate:"required,max=200"`
}

type AdminQuestionResponse struct {
	QuestionItem
	Choices []ChoiceItem `json:"choices"`
}
