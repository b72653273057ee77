package entities

import "time"

const (
	MaxQuestionTextLength = 200
	MaxChoiceTextLength   = 200
)

// Question is a poll prompt. EndsAt is nil for questions that never close.
type Question struct {
	QuestionID  int64
	Text        string
	PublishedAt time.Time
	EndsAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Choice struct {
	ChoiceID   int64
	QuestionID int64
	Text       string
	CreatedAt  time.Time
}

// Vote is a user's current selection for one question. QuestionID is carried
// alongside ChoiceID so stores can key uniqueness on (UserID, QuestionID).
type Vote struct {
	VoteID     string
	UserID     string
	QuestionID int64
	ChoiceID   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type QuestionStatus string

const (
	QuestionStatusUnpublished QuestionStatus = "unpublished"
	QuestionStatusOpen        QuestionStatus = "open"
	QuestionStatusClosed      QuestionStatus = "closed"
)

type ChoiceTally struct {
	ChoiceID int64
	Text     string
	Votes    int
}

type QuestionResults struct {
	Question   Question
	Status     QuestionStatus
	Choices    []ChoiceTally
	TotalVotes int
}

// Actor is the acting user as supplied by the identity collaborator. The
// voting context treats UserID as opaque.
type Actor struct {
	UserID  string
	IsStaff bool
}
