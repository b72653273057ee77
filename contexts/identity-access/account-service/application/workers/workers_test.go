package workers_test

import (
	"context"
	"testing"
	"time"

	"pollbooth/contexts/identity-access/account-service/adapters/memory"
	"pollbooth/contexts/identity-access/account-service/application/commands"
	"pollbooth/contexts/identity-access/account-service/application/workers"
	"pollbooth/contexts/identity-access/account-service/ports"
	"pollbooth/internal/shared/events"

	"github.com/stretchr/testify/require"
)

type stubSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, ports.EventEnvelope) error{}
	}
	s.handlers[topic] = handler
	return nil
}

func (s *stubSubscriber) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if handler := s.handlers[topic]; handler != nil {
		return handler(ctx, event)
	}
	return nil
}

type countingRecorder struct {
	counts map[string]int
}

func (r *countingRecorder) ObserveAuthEvent(eventType string) {
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[eventType]++
}

func TestAuthAuditConsumerSubscribesToEveryAuthTopic(t *testing.T) {
	sub := &stubSubscriber{}
	consumer := workers.AuthAuditConsumer{Subscriber: sub}

	require.NoError(t, consumer.Start(context.Background()))
	for _, topic := range commands.AuthEventTypes {
		require.NotNil(t, sub.handlers[topic], topic)
	}
}

func TestRelayDeliversAuthEventsToAuditConsumer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	at := time.Date(2026, 7, 4, 9, 0, 0, 0, time.UTC)
	for i, eventType := range []string{commands.EventUserLoginFailed, commands.EventUserLoggedIn} {
		envelope, err := events.NewEnvelope(
			eventType+"-id", eventType, "account-service", "username", "testuser",
			at.Add(time.Duration(i)*time.Second),
			map[string]any{"username": "testuser", "ip_address": "10.0.0.1"},
		)
		require.NoError(t, err)
		require.NoError(t, store.AppendOutbox(ctx, envelope))
	}

	bus := &stubSubscriber{}
	recorder := &countingRecorder{}
	require.NoError(t, workers.AuthAuditConsumer{Subscriber: bus, Recorder: recorder}.Start(ctx))

	published, err := workers.OutboxRelay{Outbox: store, Publisher: bus, Clock: store}.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, published)
	require.Equal(t, 1, recorder.counts[commands.EventUserLoginFailed])
	require.Equal(t, 1, recorder.counts[commands.EventUserLoggedIn])

	pending, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestAuthAuditConsumerRejectsMalformedPayload(t *testing.T) {
	consumer := workers.AuthAuditConsumer{}
	err := consumer.Handle(context.Background(), ports.EventEnvelope{
		EventID:   "bad",
		EventType: commands.EventUserLoggedOut,
		Data:      []byte("not-json"),
	})
	require.Error(t, err)
}
