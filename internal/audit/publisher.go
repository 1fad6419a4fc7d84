// Package audit publishes security events to Kafka. Publishing is strictly
// best-effort: a broker outage is logged and the triggering request proceeds.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"eventconnect-server/internal/client"
	"eventconnect-server/internal/util"
)

// Event types emitted by the auth and account services.
const (
	EventOTPSent         = "otp.sent"
	EventLoginSuccess    = "login.success"
	EventRecoveryRequest = "recovery.requested"
	EventRecoverySuccess = "recovery.success"
	EventDeletionRequest = "deletion.requested"
	EventAccountDeleted  = "account.deleted"
	EventProfileUpdated  = "profile.updated"
	EventAvatarUploaded  = "avatar.uploaded"
)

type Event struct {
	Type   string    `json:"type"`
	UserID string    `json:"userId,omitempty"`
	Phone  string    `json:"phone,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher writes events to a single topic. A nil Publisher (or one built
// without a producer) silently drops events, so callers never nil-check.
type Publisher struct {
	producer *client.KafkaProducer
	topic    string
	logger   *zap.Logger
}

func NewPublisher(producer *client.KafkaProducer, topic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Emit publishes an event, stamping At if unset.
func (p *Publisher) Emit(ctx context.Context, evt Event) {
	if p == nil || p.producer == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	value, err := json.Marshal(evt)
	if err != nil {
		p.logger.Warn("Failed to marshal audit event", util.String("type", evt.Type), zap.Error(err))
		return
	}

	if err := p.producer.ProduceMessage(ctx, p.topic, []byte(evt.Type), value); err != nil {
		p.logger.Warn("Failed to publish audit event",
			util.String("type", evt.Type),
			util.String("topic", p.topic),
			zap.Error(err),
		)
	}
}
