package dto

import (
	"time"

	"github.com/google/uuid"
)

type CheckoutRequest struct {
	PlanId uuid.UUID `json:"plan_id" validate:"required"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

type PortalRequest struct {
	ReturnURL string `json:"return_url" validate:"required,url"`
}

type PortalResponse struct {
	PortalURL string `json:"portal_url"`
}

type SubscriptionResponse struct {
	PlanName          string    `json:"plan_name"`
	PlanDisplayName   string    `json:"plan_display_name"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"current_period_end"`
	CancelAtPeriodEnd bool      `json:"cancel_at_period_end"`
	Features          []string  `json:"features"`
}

type UsageResponse struct {
	Metric    string `json:"metric"`
	Used      int64  `json:"used"`
	Limit     *int64 `json:"limit"` // null = unlimited
	Remaining int64  `json:"remaining"` // -1 = unlimited
}

type QuotaConsumeRequest struct {
	Metric string `json:"metric" validate:"required"`
	Amount int64  `json:"amount"`
}

type QuotaDecisionResponse struct {
	Allowed   bool   `json:"allowed"`
	Used      int64  `json:"used"`
	Limit     *int64 `json:"limit"`
	Remaining int64  `json:"remaining"`
}
