package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountOwnedBy filters rows by owning account
type AccountOwnedBy struct {
	AccountID uuid.UUID
}

func (s AccountOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("account_id = ?", s.AccountID)
}

// LiveStatuses filters subscriptions to the ones counting against the
// one-live-row-per-account invariant.
type LiveStatuses struct{}

func (s LiveStatuses) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", []string{"trialing", "active", "past_due"})
}

// ByProviderSubscriptionID filters by the provider-side subscription id
type ByProviderSubscriptionID struct {
	ProviderSubscriptionID string
}

func (s ByProviderSubscriptionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("provider_subscription_id = ?", s.ProviderSubscriptionID)
}

// ActivePlans filters the catalog to plans shown on the pricing surface
type ActivePlans struct{}

func (s ActivePlans) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true)
}
