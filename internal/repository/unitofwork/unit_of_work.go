package unitofwork

import (
	"context"

	"scanguard-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	PlanRepository() contract.PlanRepository
	SubscriptionRepository() contract.SubscriptionRepository
	UsageCounterRepository() contract.UsageCounterRepository
	WebhookEventRepository() contract.WebhookEventRepository
}
