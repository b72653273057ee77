package commands

import (
	"strconv"
	"time"

	"pollbooth/contexts/polls/voting-service/ports"
	"pollbooth/internal/shared/events"
)

const (
	eventVoteCast    = "vote.cast"
	eventVoteChanged = "vote.changed"
)

func newVotingEnvelope(
	eventID string,
	eventType string,
	questionID int64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Partitioned by question so per-question consumers observe votes in order.
	return events.NewEnvelope(
		eventID,
		eventType,
		"voting-service",
		"question_id",
		strconv.FormatInt(questionID, 10),
		occurredAt,
		data,
	)
}
