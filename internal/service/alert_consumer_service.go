package service

import (
	"context"
	"encoding/json"
	"time"

	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/pkg/mailer"
	"scanguard-be/pkg/events"
	pktNats "scanguard-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IAlertConsumerService interface {
	Consume(ctx context.Context) error
}

// alertConsumerService drains the alert topic: every alert is logged, mailed
// to the operator, and mirrored to NATS for external monitoring. Escalation
// is fatal to automatic handling, never fatal to the process.
type alertConsumerService struct {
	pubSub        *gochannel.GoChannel
	logger        logger.ILogger
	emailService  mailer.IEmailService
	natsPublisher *pktNats.Publisher
	operatorEmail string
}

func NewAlertConsumerService(
	pubSub *gochannel.GoChannel,
	log logger.ILogger,
	emailService mailer.IEmailService,
	natsPublisher *pktNats.Publisher,
	operatorEmail string,
) IAlertConsumerService {
	return &alertConsumerService{
		pubSub:        pubSub,
		logger:        log,
		emailService:  emailService,
		natsPublisher: natsPublisher,
		operatorEmail: operatorEmail,
	}
}

func (s *alertConsumerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, AlertTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *alertConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var alert Alert
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		s.logger.Error("ALERT", "Unreadable alert message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // never retry garbage
		return
	}

	s.logger.Error("ALERT", alert.Subject, map[string]interface{}{
		"kind":   string(alert.Kind),
		"detail": alert.Detail,
		"at":     alert.At,
	})

	if s.operatorEmail != "" && s.emailService != nil {
		if err := s.emailService.SendOperatorAlert(s.operatorEmail, alert.Subject, alert.Detail); err != nil {
			s.logger.Warn("ALERT", "Operator email failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if s.natsPublisher != nil {
		evt := events.BaseEvent{
			Type: "BILLING_ALERT",
			Data: map[string]interface{}{
				"kind":    string(alert.Kind),
				"subject": alert.Subject,
				"detail":  alert.Detail,
			},
			OccurredAt: time.Now(),
		}
		if err := s.natsPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("ALERT", "NATS mirror failed", map[string]interface{}{"error": err.Error()})
		}
	}

	msg.Ack()
}
