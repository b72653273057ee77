package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "pollbooth/contexts/identity-access/account-service/application"
	"pollbooth/contexts/identity-access/account-service/ports"
)

// OutboxRelay publishes pending auth events in creation order.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}
	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("account outbox list failed",
			"event", "account_outbox_list_failed",
			"module", "identity-access/account-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}
	published := 0
	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("account outbox decode failed",
				"event", "account_outbox_decode_failed",
				"module", "identity-access/account-service",
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
			logger.Error("account outbox publish failed",
				"event", "account_outbox_publish_failed",
				"module", "identity-access/account-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_type", topic,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return published, err
		}
		published++
	}
	if published > 0 {
		logger.Info("account outbox relay cycle completed",
			"event", "account_outbox_relay_completed",
			"module", "identity-access/account-service",
			"layer", "worker",
			"published_count", published,
		)
	}
	return published, nil
}
