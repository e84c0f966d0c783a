package service

import (
	"context"
	"time"

	"scanguard-be/internal/dto"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/repository/specification"
	"scanguard-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

type IPlanService interface {
	// GetPlans returns the active catalog in pricing-page order.
	GetPlans(ctx context.Context) ([]dto.PlanResponse, error)
	// GetPlan resolves a plan by id, cache-first. Plans are immutable so a
	// cache hit can never be stale.
	GetPlan(ctx context.Context, planId uuid.UUID) (*entity.Plan, error)
	// DefaultPlan is the implicit free tier for unsubscribed accounts.
	DefaultPlan() *entity.Plan
}

type planService struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *gocache.Cache
	logger     logger.ILogger
}

func NewPlanService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IPlanService {
	return &planService{
		uowFactory: uowFactory,
		cache:      gocache.New(1*time.Hour, 10*time.Minute),
		logger:     log,
	}
}

func (s *planService) GetPlans(ctx context.Context) ([]dto.PlanResponse, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).PlanRepository()

	plans, err := repo.FindAll(ctx,
		specification.ActivePlans{},
		specification.OrderBy{Field: "sort_order"},
	)
	if err != nil {
		return nil, &entity.TransientStorageError{Op: "plan catalog read", Err: err}
	}

	responses := make([]dto.PlanResponse, 0, len(plans))
	for _, plan := range plans {
		responses = append(responses, dto.PlanResponse{
			Id:               plan.Id,
			Name:             plan.Name,
			DisplayName:      plan.DisplayName,
			PriceMonthly:     plan.PriceMonthly,
			MaxScansPerMonth: plan.MaxScansPerMonth,
			MaxCloudAccounts: plan.MaxCloudAccounts,
			Features:         planFeatures(plan),
		})
	}
	return responses, nil
}

func (s *planService) GetPlan(ctx context.Context, planId uuid.UUID) (*entity.Plan, error) {
	if cached, found := s.cache.Get(planId.String()); found {
		return cached.(*entity.Plan), nil
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).PlanRepository()
	plan, err := repo.FindOne(ctx, specification.ByID{ID: planId})
	if err != nil {
		return nil, &entity.TransientStorageError{Op: "plan read", Err: err}
	}
	if plan == nil {
		return nil, nil
	}

	s.cache.Set(planId.String(), plan, gocache.DefaultExpiration)
	return plan, nil
}

func (s *planService) DefaultPlan() *entity.Plan {
	return entity.FreePlan()
}

func planFeatures(plan *entity.Plan) []string {
	all := []entity.Feature{
		entity.FeatureAiChat,
		entity.FeatureImpactTracking,
		entity.FeatureEmailNotifications,
		entity.FeatureApiAccess,
		entity.FeaturePrioritySupport,
	}
	features := make([]string, 0, len(all))
	for _, f := range all {
		if plan.HasFeature(f) {
			features = append(features, string(f))
		}
	}
	return features
}
