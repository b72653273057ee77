package workers

import (
	"context"
	"encoding/json"
	"log/slog"

	application "pollbooth/contexts/identity-access/account-service/application"
	"pollbooth/contexts/identity-access/account-service/application/commands"
	"pollbooth/contexts/identity-access/account-service/ports"
)

const authAuditConsumerGroup = "account-auth-audit"

// AuthEventRecorder receives one call per audited event, typically a metrics
// counter.
type AuthEventRecorder interface {
	ObserveAuthEvent(eventType string)
}

// AuthAuditConsumer writes an audit log line for every login, logout and
// failed login relayed from the account outbox.
type AuthAuditConsumer struct {
	Subscriber ports.EventSubscriber
	Recorder   AuthEventRecorder
	Logger     *slog.Logger
}

type authEventPayload struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

func (c AuthAuditConsumer) Start(ctx context.Context) error {
	for _, topic := range commands.AuthEventTypes {
		if err := c.Subscriber.Subscribe(ctx, topic, authAuditConsumerGroup, c.Handle); err != nil {
			return err
		}
	}
	return nil
}

func (c AuthAuditConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	var payload authEventPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("auth audit decode failed",
			"event", "account_auth_audit_decode_failed",
			"module", "identity-access/account-service",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	level := slog.LevelInfo
	if event.EventType == commands.EventUserLoginFailed {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "auth event audited",
		"event", "account_auth_audit",
		"module", "identity-access/account-service",
		"layer", "worker",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"occurred_at", event.OccurredAt,
		"user_id", payload.UserID,
		"username", payload.Username,
		"ip_address", payload.IPAddress,
		"user_agent", payload.UserAgent,
	)
	if c.Recorder != nil {
		c.Recorder.ObserveAuthEvent(event.EventType)
	}
	return nil
}
