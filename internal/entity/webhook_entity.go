package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCheckoutCompleted    EventType = "checkout.completed"
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionDeleted  EventType = "subscription.deleted"
	EventInvoicePaid          EventType = "invoice.paid"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
)

// Outcome records how an event application ended. It is persisted on the
// ledger row so duplicate deliveries can be answered without reapplying.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	// OutcomeStale: revision <= stored revision, acknowledged as a no-op.
	OutcomeStale Outcome = "stale"
	// OutcomeIgnored: event type the reconciler does not act on.
	OutcomeIgnored Outcome = "ignored"
)

// SubscriptionSnapshot is the provider's current view of a subscription,
// carried in full on every event. Reconciliation converges to the snapshot
// rather than replaying deltas, so out-of-order delivery cannot corrupt
// state as long as revisions are honored.
type SubscriptionSnapshot struct {
	ProviderSubscriptionId string
	AccountId              uuid.UUID
	PlanId                 uuid.UUID
	Status                 SubscriptionStatus
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	CancelAtPeriodEnd      bool
}

// ProviderEvent is a parsed, signature-verified webhook payload.
type ProviderEvent struct {
	ProviderEventId string
	Type            EventType
	OccurredAt      time.Time
	Revision        int64
	Subscription    SubscriptionSnapshot
}

// WebhookLedgerEntry is one row of the idempotency ledger. Created on first
// sight of an event id, marked processed exactly once, purged after the
// retention window.
type WebhookLedgerEntry struct {
	ProviderEventId string
	Type            EventType
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
	Outcome         Outcome
	Attempts        int
	Payload         []byte
}

func (e *WebhookLedgerEntry) Processed() bool {
	return e.ProcessedAt != nil
}
