package service

import (
	"context"
	"encoding/json"
	"time"

	"scanguard-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const AlertTopic = "billing.alerts"

type AlertKind string

const (
	AlertSignatureFlood      AlertKind = "signature_flood"
	AlertMalformedPayload    AlertKind = "malformed_payload"
	AlertEventRetryExceeded  AlertKind = "event_retry_exceeded"
	AlertAnomalousTransition AlertKind = "anomalous_transition"
	AlertResyncLagging       AlertKind = "resync_lagging"
)

type Alert struct {
	Kind    AlertKind `json:"kind"`
	Subject string    `json:"subject"`
	Detail  string    `json:"detail"`
	At      time.Time `json:"at"`
}

type IAlertService interface {
	Raise(ctx context.Context, kind AlertKind, subject, detail string)
}

// alertService publishes alerts onto the in-process bus. Raising an alert
// never fails the caller: alerting is best effort, processing is not.
type alertService struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewAlertService(pubSub *gochannel.GoChannel, log logger.ILogger) IAlertService {
	return &alertService{
		pubSub: pubSub,
		logger: log,
	}
}

func (s *alertService) Raise(ctx context.Context, kind AlertKind, subject, detail string) {
	alert := Alert{
		Kind:    kind,
		Subject: subject,
		Detail:  detail,
		At:      time.Now(),
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		s.logger.Error("ALERT", "Failed to marshal alert", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	if err := s.pubSub.Publish(AlertTopic, msg); err != nil {
		s.logger.Error("ALERT", "Failed to publish alert", map[string]interface{}{
			"kind":  string(kind),
			"error": err.Error(),
		})
	}
}
