package model

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent is the idempotency ledger. provider_event_id is the primary
// key: a given event id can only ever have one row, no matter how many times
// the provider delivers it.
type WebhookEvent struct {
	ProviderEventId string         `gorm:"type:varchar(255);primaryKey"`
	Type            string         `gorm:"type:varchar(100);not null"`
	ReceivedAt      time.Time      `gorm:"not null"`
	ProcessedAt     *time.Time     `gorm:"index"`
	Outcome         string         `gorm:"type:varchar(50)"`
	Attempts        int            `gorm:"not null;default:0"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
