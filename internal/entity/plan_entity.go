package entity

import (
	"time"

	"github.com/google/uuid"
)

type Feature string
type Metric string

const (
	FeatureAiChat             Feature = "has_ai_chat"
	FeatureImpactTracking     Feature = "has_impact_tracking"
	FeatureEmailNotifications Feature = "has_email_notifications"
	FeatureApiAccess          Feature = "has_api_access"
	FeaturePrioritySupport    Feature = "has_priority_support"

	MetricScans         Metric = "scans"
	MetricCloudAccounts Metric = "cloud_accounts"
)

// MeteredMetrics lists every metric the meter pre-creates counters for on a
// period rollover.
var MeteredMetrics = []Metric{MetricScans, MetricCloudAccounts}

// Plan is an immutable pricing tier. A price or limit change creates a NEW
// plan row; existing rows are never mutated once a subscription references
// them, so plan lookups by id are always safe to cache.
type Plan struct {
	Id           uuid.UUID
	Name         string
	DisplayName  string
	PriceMonthly float64
	// Quota limits, nil = unlimited
	MaxScansPerMonth *int64
	MaxCloudAccounts *int64
	// Capability flags
	HasAiChat             bool
	HasImpactTracking     bool
	HasEmailNotifications bool
	HasApiAccess          bool
	HasPrioritySupport    bool
	// Display settings
	IsActive  bool
	SortOrder int

	CreatedAt time.Time
}

func (p *Plan) HasFeature(f Feature) bool {
	switch f {
	case FeatureAiChat:
		return p.HasAiChat
	case FeatureImpactTracking:
		return p.HasImpactTracking
	case FeatureEmailNotifications:
		return p.HasEmailNotifications
	case FeatureApiAccess:
		return p.HasApiAccess
	case FeaturePrioritySupport:
		return p.HasPrioritySupport
	}
	return false
}

// LimitFor returns the plan limit for a metered metric. nil means unlimited.
// Unknown metrics get a zero limit so a typo denies instead of granting.
func (p *Plan) LimitFor(m Metric) *int64 {
	switch m {
	case MetricScans:
		return p.MaxScansPerMonth
	case MetricCloudAccounts:
		return p.MaxCloudAccounts
	}
	zero := int64(0)
	return &zero
}

// FreePlan is the implicit tier for accounts without a live subscription.
// Conservative on purpose: no capabilities, minimal quota.
func FreePlan() *Plan {
	scans := int64(3)
	accounts := int64(1)
	return &Plan{
		Name:             "free",
		DisplayName:      "Free Plan",
		MaxScansPerMonth: &scans,
		MaxCloudAccounts: &accounts,
		IsActive:         true,
	}
}
