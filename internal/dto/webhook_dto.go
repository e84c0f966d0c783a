package dto

import (
	"time"

	"scanguard-be/internal/entity"

	"github.com/google/uuid"
)

// ProviderWebhookRequest is the wire shape of a billing-provider event. The
// provider posts its CURRENT full subscription snapshot on every event;
// reconciliation converges to the snapshot instead of replaying deltas.
type ProviderWebhookRequest struct {
	Id           string                      `json:"id"`
	Type         string                      `json:"type"`
	OccurredAt   time.Time                   `json:"occurred_at"`
	Revision     int64                       `json:"revision"`
	Subscription ProviderSubscriptionPayload `json:"subscription"`
}

type ProviderSubscriptionPayload struct {
	Id                 string    `json:"id"`
	AccountRef         string    `json:"account_ref"`
	PlanRef            string    `json:"plan_ref"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
}

// ToEvent validates the payload and lifts it into the typed domain event.
func (r *ProviderWebhookRequest) ToEvent() (*entity.ProviderEvent, error) {
	if r.Id == "" {
		return nil, &entity.ValidationError{Field: "id", Reason: "missing event id"}
	}
	if r.Type == "" {
		return nil, &entity.ValidationError{Field: "type", Reason: "missing event type"}
	}
	if r.Revision <= 0 {
		return nil, &entity.ValidationError{Field: "revision", Reason: "revision must be positive"}
	}

	accountId, err := uuid.Parse(r.Subscription.AccountRef)
	if err != nil {
		return nil, &entity.ValidationError{Field: "subscription.account_ref", Reason: "not a valid uuid"}
	}
	planId, err := uuid.Parse(r.Subscription.PlanRef)
	if err != nil {
		return nil, &entity.ValidationError{Field: "subscription.plan_ref", Reason: "not a valid uuid"}
	}

	status := entity.SubscriptionStatus(r.Subscription.Status)
	switch status {
	case entity.SubscriptionStatusTrialing, entity.SubscriptionStatusActive,
		entity.SubscriptionStatusPastDue, entity.SubscriptionStatusCanceled,
		entity.SubscriptionStatusIncomplete:
	default:
		return nil, &entity.ValidationError{Field: "subscription.status", Reason: "unknown status " + r.Subscription.Status}
	}

	occurredAt := r.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	return &entity.ProviderEvent{
		ProviderEventId: r.Id,
		Type:            entity.EventType(r.Type),
		OccurredAt:      occurredAt,
		Revision:        r.Revision,
		Subscription: entity.SubscriptionSnapshot{
			ProviderSubscriptionId: r.Subscription.Id,
			AccountId:              accountId,
			PlanId:                 planId,
			Status:                 status,
			CurrentPeriodStart:     r.Subscription.CurrentPeriodStart,
			CurrentPeriodEnd:       r.Subscription.CurrentPeriodEnd,
			CancelAtPeriodEnd:      r.Subscription.CancelAtPeriodEnd,
		},
	}, nil
}
