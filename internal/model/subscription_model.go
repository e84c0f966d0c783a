package model

import (
	"time"

	"github.com/google/uuid"
)

type Subscription struct {
	Id                     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AccountId              uuid.UUID `gorm:"type:uuid;not null;index"`
	PlanId                 uuid.UUID `gorm:"type:uuid;not null;index"`
	Status                 string    `gorm:"type:varchar(50);not null"`
	CurrentPeriodStart     time.Time `gorm:"not null"`
	CurrentPeriodEnd       time.Time `gorm:"not null"`
	CancelAtPeriodEnd      bool      `gorm:"default:false"`
	ProviderSubscriptionId string    `gorm:"type:varchar(255);index"`
	Revision               int64     `gorm:"not null;default:0"`
	CreatedAt              time.Time `gorm:"autoCreateTime"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
