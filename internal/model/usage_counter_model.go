package model

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter has a composite unique index so concurrent lazy creation of
// the same period's counter collapses into one row (ON CONFLICT DO NOTHING).
type UsageCounter struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usage_account_metric_period"`
	Metric      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_usage_account_metric_period"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_usage_account_metric_period"`
	PeriodEnd   time.Time `gorm:"not null"`
	Used        int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (UsageCounter) TableName() string {
	return "usage_counters"
}
