package contract

import (
	"context"

	"scanguard-be/internal/entity"
	"scanguard-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	Update(ctx context.Context, sub *entity.Subscription) error
	// FindLiveByAccount returns the single trialing/active/past_due row for
	// the account, or nil when the account is on the free tier.
	FindLiveByAccount(ctx context.Context, accountId uuid.UUID) (*entity.Subscription, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error)
	// FindAllLive streams every live subscription for the resync sweep.
	FindAllLive(ctx context.Context) ([]*entity.Subscription, error)
}
