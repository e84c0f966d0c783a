package model

import (
	"time"

	"github.com/google/uuid"
)

type Plan struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName  string    `gorm:"type:varchar(255);not null"`
	PriceMonthly float64   `gorm:"type:decimal(10,2);not null"`
	// Limits, NULL = unlimited
	MaxScansPerMonth *int64
	MaxCloudAccounts *int64
	// Feature flags
	HasAiChat             bool `gorm:"default:false"`
	HasImpactTracking     bool `gorm:"default:false"`
	HasEmailNotifications bool `gorm:"default:false"`
	HasApiAccess          bool `gorm:"default:false"`
	HasPrioritySupport    bool `gorm:"default:false"`
	// Display Settings
	IsActive  bool `gorm:"default:true"`
	SortOrder int  `gorm:"default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Plan) TableName() string {
	return "plans"
}
