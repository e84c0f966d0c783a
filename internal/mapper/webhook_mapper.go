package mapper

import (
	"scanguard-be/internal/entity"
	"scanguard-be/internal/model"

	"gorm.io/datatypes"
)

type WebhookMapper struct{}

func NewWebhookMapper() *WebhookMapper {
	return &WebhookMapper{}
}

func (m *WebhookMapper) ToEntity(e *model.WebhookEvent) *entity.WebhookLedgerEntry {
	if e == nil {
		return nil
	}
	return &entity.WebhookLedgerEntry{
		ProviderEventId: e.ProviderEventId,
		Type:            entity.EventType(e.Type),
		ReceivedAt:      e.ReceivedAt,
		ProcessedAt:     e.ProcessedAt,
		Outcome:         entity.Outcome(e.Outcome),
		Attempts:        e.Attempts,
		Payload:         []byte(e.Payload),
	}
}

func (m *WebhookMapper) ToModel(e *entity.WebhookLedgerEntry) *model.WebhookEvent {
	if e == nil {
		return nil
	}
	return &model.WebhookEvent{
		ProviderEventId: e.ProviderEventId,
		Type:            string(e.Type),
		ReceivedAt:      e.ReceivedAt,
		ProcessedAt:     e.ProcessedAt,
		Outcome:         string(e.Outcome),
		Attempts:        e.Attempts,
		Payload:         datatypes.JSON(e.Payload),
	}
}
