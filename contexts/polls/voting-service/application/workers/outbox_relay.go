package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "pollbooth/contexts/polls/voting-service/application"
	"pollbooth/contexts/polls/voting-service/ports"
)

// OutboxRelay moves pending vote events from the outbox onto the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays one batch in creation order. A row is marked published only
// after the bus accepts it; the first failure ends the cycle and the rest stay
// pending for the next tick.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("polls outbox list failed",
			"event", "polls_outbox_list_failed",
			"module", "polls/voting-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("polls outbox relay found no pending rows",
			"event", "polls_outbox_relay_noop",
			"module", "polls/voting-service",
			"layer", "worker",
		)
		return 0, nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("polls outbox decode failed",
				"event", "polls_outbox_decode_failed",
				"module", "polls/voting-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("polls outbox publish failed",
				"event", "polls_outbox_publish_failed",
				"module", "polls/voting-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", topic,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("polls outbox mark published failed",
				"event", "polls_outbox_mark_published_failed",
				"module", "polls/voting-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("polls outbox relay cycle completed",
		"event", "polls_outbox_relay_completed",
		"module", "polls/voting-service",
		"layer", "worker",
		"published_count", published,
	)
	return published, nil
}
