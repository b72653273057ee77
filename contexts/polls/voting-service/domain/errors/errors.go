package errors

import "errors"

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrChoiceNotFound   = errors.New("choice not found")
	ErrInvalidSelection = errors.New("no choice selected")
	ErrNotYetPublished  = errors.New("question is not published yet")
	ErrVotingClosed     = errors.New("voting is closed for this question")
	ErrInvalidQuestion  = errors.New("invalid question")
	ErrInvalidChoice    = errors.New("invalid choice")
	ErrInvalidVoteInput = errors.New("invalid vote input")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("vote conflict")
	ErrOutboxNotFound   = errors.New("outbox message not found")
)
