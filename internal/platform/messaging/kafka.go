package messaging

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"pollbooth/internal/shared/events"
)

const subscriberBuffer = 128

// Kafka is the event bus the outbox relays publish to. Delivery is in-process
// per topic; the configured brokers are only logged.
type Kafka struct {
	mu          sync.RWMutex
	subscribers map[string][]chan events.Envelope
	logger      *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event bus ready",
		"event", "messaging_bus_ready",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"brokers", strings.Join(brokers, ","),
	)
	return &Kafka{
		subscribers: make(map[string][]chan events.Envelope),
		logger:      logger,
	}, nil
}

// Publish never blocks on a full subscriber; the event is dropped for that
// subscriber and a warning is logged.
func (k *Kafka) Publish(ctx context.Context, topic string, event events.Envelope) error {
	topic = strings.TrimSpace(topic)
	k.mu.RLock()
	subs := append([]chan events.Envelope(nil), k.subscribers[topic]...)
	k.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			k.logger.Warn("dropping event for slow subscriber",
				"event", "kafka_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"subscriber_count", len(subs),
	)
	return nil
}

// Subscribe runs handler on its own goroutine until ctx is cancelled. Handler
// errors are logged and the event is not redelivered.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	topic = strings.TrimSpace(topic)
	ch := make(chan events.Envelope, subscriberBuffer)

	k.mu.Lock()
	k.subscribers[topic] = append(k.subscribers[topic], ch)
	k.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				k.removeSubscriber(topic, ch)
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) removeSubscriber(topic string, target chan events.Envelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	items := k.subscribers[topic]
	filtered := make([]chan events.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) == 0 {
		delete(k.subscribers, topic)
		return
	}
	k.subscribers[topic] = filtered
}
