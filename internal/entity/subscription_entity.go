package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// IsLive reports whether the status counts against the one-live-row-per-account
// invariant. Canceled and incomplete rows are terminal history.
func (s SubscriptionStatus) IsLive() bool {
	switch s {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// Subscription is the local mirror of the account's commercial relationship
// with the billing provider. It is only ever written by the reconciler,
// serialized per account.
type Subscription struct {
	Id                     uuid.UUID
	AccountId              uuid.UUID
	PlanId                 uuid.UUID
	Status                 SubscriptionStatus
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	CancelAtPeriodEnd      bool
	ProviderSubscriptionId string
	// Revision is the provider-assigned monotonic version of the snapshot.
	// Events with revision <= the stored value are acknowledged as no-ops.
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period is a billing window anchored to the subscription, not the calendar.
type Period struct {
	Start time.Time
	End   time.Time
}

func (s *Subscription) Period() Period {
	return Period{Start: s.CurrentPeriodStart, End: s.CurrentPeriodEnd}
}

// Advance rolls the window forward by whole period lengths until it covers
// now. Used when wall-clock time has passed period end but the renewal
// webhook has not landed yet.
func (p Period) Advance(now time.Time) Period {
	length := p.End.Sub(p.Start)
	if length <= 0 {
		return p
	}
	for !now.Before(p.End) {
		p.Start = p.End
		p.End = p.End.Add(length)
	}
	return p
}

// CalendarMonth returns the calendar-month window covering now, used as the
// anchor for free-tier accounts that have no subscription to anchor to.
func CalendarMonth(now time.Time) Period {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}
