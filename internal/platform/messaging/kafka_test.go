package messaging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"pollbooth/internal/shared/events"

	"github.com/stretchr/testify/require"
)

func TestKafkaDeliversToEverySubscriberOfTopic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	require.NoError(t, err)

	received := make(chan string, 4)
	for _, group := range []string{"audit", "metrics"} {
		group := group
		require.NoError(t, bus.Subscribe(ctx, "user.logged_in", group, func(_ context.Context, event events.Envelope) error {
			received <- group + ":" + event.EventID
			return nil
		}))
	}
	require.NoError(t, bus.Subscribe(ctx, "vote.cast", "other", func(context.Context, events.Envelope) error {
		received <- "unexpected"
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "user.logged_in", events.Envelope{EventID: "e1", EventType: "user.logged_in"}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case value := <-received:
			got[value] = true
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for delivery")
		}
	}
	require.Equal(t, map[string]bool{"audit:e1": true, "metrics:e1": true}, got)
}

func TestKafkaRemovesSubscriberOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx, "vote.cast", "g", func(context.Context, events.Envelope) error { return nil }))

	cancel()
	require.Eventually(t, func() bool {
		bus.mu.RLock()
		defer bus.mu.RUnlock()
		return len(bus.subscribers["vote.cast"]) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestKafkaLogsConfiguredBrokers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	_, err := NewKafka([]string{"k1:9092", "k2:9092"}, logger)
	require.NoError(t, err)
	require.Contains(t, buf.String(), `"event":"messaging_bus_ready"`)
	require.Contains(t, buf.String(), `"brokers":"k1:9092,k2:9092"`)
}
