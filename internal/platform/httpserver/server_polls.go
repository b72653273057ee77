package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	accountentities "pollbooth/contexts/identity-access/account-service/domain/entities"
	votingentities "pollbooth/contexts/polls/voting-service/domain/entities"
	votingerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	pollshttp "pollbooth/contexts/polls/voting-service/transport/http"
)

func (s *Server) handleListLatest(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitRaw := r.URL.Query().Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	resp, err := s.polls.Handler.ListLatestHandler(r.Context(), limit)
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOpen(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ListOpenHandler(r.Context())
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQuestionDetail(w http.ResponseWriter, r *http.Request, identity accountentities.Identity) {
	questionID, ok := questionIDFromPath(w, r)
	if !ok {
		return
	}
	resp, err := s.polls.Handler.DetailHandler(r.Context(), questionID, identity.UserID)
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request, identity accountentities.Identity) {
	questionID, ok := questionIDFromPath(w, r)
	if !ok {
		return
	}
	var req pollshttp.CastVoteRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.polls.Handler.CastVoteHandler(r.Context(), identity.UserID, questionID, req)
	if err != nil {
		s.metrics.ObserveVote(pollsErrorCode(err))
		s.writePollsDomainError(w, err)
		return
	}
	switch {
	case resp.Created:
		s.metrics.ObserveVote("created")
	case resp.Changed:
		s.metrics.ObserveVote("changed")
	default:
		s.metrics.ObserveVote("unchanged")
	}
	w.Header().Set("Location", resp.ResultsURL)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	questionID, ok := questionIDFromPath(w, r)
	if !ok {
		return
	}
	resp, err := s.polls.Handler.ResultsHandler(r.Context(), questionID)
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateQuestion(w http.ResponseWriter, r *http.Request, identity accountentities.Identity) {
	var req pollshttp.CreateQuestionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.CreateQuestionHandler(r.Context(), pollsActor(identity), req)
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request, identity accountentities.Identity) {
	questionID, ok := questionIDFromPath(w, r)
	if !ok {
		return
	}
	var req pollshttp.UpdateQuestionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.UpdateQuestionHandler(r.Context(), pollsActor(identity), questionID, req)
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddChoice(w http.ResponseWriter, r *http.Request, identity accountentities.Identity) {
	questionID, ok := questionIDFromPath(w, r)
	if !ok {
		return
	}
	var req pollshttp.AddChoiceRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.AddChoiceHandler(r.Context(), pollsActor(identity), questionID, req)
	if err != nil {
		s.writePollsDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// questionIDFromPath treats a malformed id the same as an unknown question.
func questionIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	questionID, err := strconv.ParseInt(r.PathValue("question_id"), 10, 64)
	if err != nil || questionID <= 0 {
		writePollsError(w, http.StatusNotFound, "not_found", votingerrors.ErrQuestionNotFound.Error())
		return 0, false
	}
	return questionID, true
}

func pollsActor(identity accountentities.Identity) votingentities.Actor {
	return votingentities.Actor{UserID: identity.UserID, IsStaff: identity.IsStaff}
}

func (s *Server) writePollsDomainError(w http.ResponseWriter, err error) {
	status, code := pollsErrorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("polls request failed",
			"event", "http_polls_request_failed",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"error", err.Error(),
		)
		writePollsError(w, status, code, "internal server error")
		return
	}
	writePollsError(w, status, code, err.Error())
}

func pollsErrorCode(err error) string {
	_, code := pollsErrorStatus(err)
	return code
}

func pollsErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, votingerrors.ErrQuestionNotFound),
		errors.Is(err, votingerrors.ErrChoiceNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, votingerrors.ErrInvalidSelection):
		return http.StatusUnprocessableEntity, "no_choice_selected"
	case errors.Is(err, votingerrors.ErrNotYetPublished):
		return http.StatusForbidden, "not_yet_published"
	case errors.Is(err, votingerrors.ErrVotingClosed):
		return http.StatusForbidden, "voting_closed"
	case errors.Is(err, votingerrors.ErrInvalidQuestion):
		return http.StatusBadRequest, "invalid_question"
	case errors.Is(err, votingerrors.ErrInvalidChoice):
		return http.StatusBadRequest, "invalid_choice"
	case errors.Is(err, votingerrors.ErrInvalidVoteInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, votingerrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, votingerrors.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writePollsError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollshttp.ErrorResponse{Code: code, Message: message})
}
