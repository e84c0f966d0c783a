package service

import (
	"context"
	"time"

	"scanguard-be/internal/dto"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/repository/unitofwork"
	"scanguard-be/pkg/metering"

	"github.com/google/uuid"
)

type IEntitlementService interface {
	// CheckFeature answers "can this account use this capability right now".
	CheckFeature(ctx context.Context, accountId uuid.UUID, feature entity.Feature) (bool, error)
	// CheckAndConsumeQuota atomically decides and spends in one step. There
	// is deliberately no separate check-then-consume surface.
	CheckAndConsumeQuota(ctx context.Context, accountId uuid.UUID, metric entity.Metric, amount int64) (entity.Decision, error)
	// ReleaseQuota hands back quota for a counted action that failed
	// downstream. Explicit compensation, never automatic.
	ReleaseQuota(ctx context.Context, accountId uuid.UUID, metric entity.Metric, amount int64) error
	GetUsage(ctx context.Context, accountId uuid.UUID) ([]dto.UsageResponse, error)
	GetSubscription(ctx context.Context, accountId uuid.UUID) (*dto.SubscriptionResponse, error)
}

type entitlementService struct {
	uowFactory  unitofwork.RepositoryFactory
	planService IPlanService
	meter       *metering.Meter
	logger      logger.ILogger
	now         func() time.Time
}

func NewEntitlementService(
	uowFactory unitofwork.RepositoryFactory,
	planService IPlanService,
	meter *metering.Meter,
	log logger.ILogger,
) IEntitlementService {
	return &entitlementService{
		uowFactory:  uowFactory,
		planService: planService,
		meter:       meter,
		logger:      log,
		now:         time.Now,
	}
}

// entitlement is the resolved context every gate decision runs against.
type entitlement struct {
	plan         *entity.Plan
	period       entity.Period
	status       entity.SubscriptionStatus
	subscription *entity.Subscription
}

// resolve maps an account to its effective plan and billing window. No live
// subscription means the free tier anchored to the calendar month. A live
// subscription whose plan row is missing falls back to the free tier as
// well: a broken catalog must never grant unlimited access.
func (s *entitlementService) resolve(ctx context.Context, accountId uuid.UUID) (*entitlement, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).SubscriptionRepository()

	sub, err := repo.FindLiveByAccount(ctx, accountId)
	if err != nil {
		return nil, &entity.TransientStorageError{Op: "subscription read", Err: err}
	}

	if sub == nil {
		return &entitlement{
			plan:   s.planService.DefaultPlan(),
			period: entity.CalendarMonth(s.now()),
		}, nil
	}

	plan, err := s.planService.GetPlan(ctx, sub.PlanId)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		s.logger.Error("ENTITLEMENT", "Live subscription references unknown plan", map[string]interface{}{
			"account_id": accountId,
			"plan_id":    sub.PlanId,
		})
		plan = s.planService.DefaultPlan()
	}

	return &entitlement{
		plan:         plan,
		period:       sub.Period(),
		status:       sub.Status,
		subscription: sub,
	}, nil
}

func (s *entitlementService) CheckFeature(ctx context.Context, accountId uuid.UUID, feature entity.Feature) (bool, error) {
	ent, err := s.resolve(ctx, accountId)
	if err != nil {
		// Fail closed: an unreachable store denies rather than grants.
		return false, err
	}
	return ent.plan.HasFeature(feature), nil
}

func (s *entitlementService) CheckAndConsumeQuota(ctx context.Context, accountId uuid.UUID, metric entity.Metric, amount int64) (entity.Decision, error) {
	if amount <= 0 {
		return entity.Decision{}, &entity.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	ent, err := s.resolve(ctx, accountId)
	if err != nil {
		return entity.Decision{Allowed: false}, err
	}

	return s.meter.TryConsume(ctx, accountId, metric, amount, ent.plan.LimitFor(metric), ent.period)
}

func (s *entitlementService) ReleaseQuota(ctx context.Context, accountId uuid.UUID, metric entity.Metric, amount int64) error {
	if amount <= 0 {
		return &entity.ValidationError{Field: "amount", Reason: "must be positive"}
	}

	ent, err := s.resolve(ctx, accountId)
	if err != nil {
		return err
	}

	return s.meter.Release(ctx, accountId, metric, amount, ent.period)
}

func (s *entitlementService) GetUsage(ctx context.Context, accountId uuid.UUID) ([]dto.UsageResponse, error) {
	ent, err := s.resolve(ctx, accountId)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UsageResponse, 0, len(entity.MeteredMetrics))
	for _, metric := range entity.MeteredMetrics {
		used, err := s.meter.CurrentUsage(ctx, accountId, metric, ent.period)
		if err != nil {
			return nil, err
		}
		decision := entity.Decision{Used: used, Limit: ent.plan.LimitFor(metric)}
		responses = append(responses, dto.UsageResponse{
			Metric:    string(metric),
			Used:      used,
			Limit:     decision.Limit,
			Remaining: decision.Remaining(),
		})
	}
	return responses, nil
}

func (s *entitlementService) GetSubscription(ctx context.Context, accountId uuid.UUID) (*dto.SubscriptionResponse, error) {
	ent, err := s.resolve(ctx, accountId)
	if err != nil {
		return nil, err
	}

	resp := &dto.SubscriptionResponse{
		PlanName:        ent.plan.Name,
		PlanDisplayName: ent.plan.DisplayName,
		Status:          string(ent.status),
		Features:        planFeatures(ent.plan),
	}
	if ent.subscription != nil {
		resp.CurrentPeriodEnd = ent.subscription.CurrentPeriodEnd
		resp.CancelAtPeriodEnd = ent.subscription.CancelAtPeriodEnd
	} else {
		resp.Status = "free"
		resp.CurrentPeriodEnd = ent.period.End
	}
	return resp, nil
}
