package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
)

const recentWindow = 24 * time.Hour

// IsPublished reports whether the question is visible at now. Publication has
// no upper bound, so once true it stays true.
func IsPublished(question entities.Question, now time.Time) bool {
	return !now.Before(question.PublishedAt)
}

// CanVote reports whether now falls inside the inclusive window
// [PublishedAt, EndsAt], or [PublishedAt, ∞) when EndsAt is unset.
func CanVote(question entities.Question, now time.Time) bool {
	if now.Before(question.PublishedAt) {
		return false
	}
	if question.EndsAt != nil && now.After(*question.EndsAt) {
		return false
	}
	return true
}

// WasPublishedRecently evaluates now-24h <= PublishedAt <= now literally.
func WasPublishedRecently(question entities.Question, now time.Time) bool {
	lower := now.Add(-recentWindow)
	return !question.PublishedAt.Before(lower) && !question.PublishedAt.After(now)
}

// Lifecycle maps wall-clock time onto the question state machine.
func Lifecycle(question entities.Question, now time.Time) entities.QuestionStatus {
	switch {
	case !IsPublished(question, now):
		return entities.QuestionStatusUnpublished
	case CanVote(question, now):
		return entities.QuestionStatusOpen
	default:
		return entities.QuestionStatusClosed
	}
}

// EnsureVotable returns the user-facing reason a vote must be rejected, or nil.
func EnsureVotable(question entities.Question, now time.Time) error {
	switch Lifecycle(question, now) {
	case entities.QuestionStatusUnpublished:
		return domainerrors.ErrNotYetPublished
	case entities.QuestionStatusClosed:
		return domainerrors.ErrVotingClosed
	default:
		return nil
	}
}

// ValidateQuestion checks text bounds and the end >= publish invariant.
func ValidateQuestion(question entities.Question) error {
	text := strings.TrimSpace(question.Text)
	if text == "" || utf8.RuneCountInString(text) > entities.MaxQuestionTextLength {
		return domainerrors.ErrInvalidQuestion
	}
	if question.PublishedAt.IsZero() {
		return domainerrors.ErrInvalidQuestion
	}
	if question.EndsAt != nil && question.EndsAt.Before(question.PublishedAt) {
		return domainerrors.ErrInvalidQuestion
	}
	return nil
}

func ValidateChoiceText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > entities.MaxChoiceTextLength {
		return domainerrors.ErrInvalidChoice
	}
	return nil
}
