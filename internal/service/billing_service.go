package service

import (
	"context"
	"time"

	"scanguard-be/internal/config"
	"scanguard-be/internal/dto"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/pkg/billing"

	"github.com/google/uuid"
)

type IBillingService interface {
	// CreateCheckout starts a provider-hosted purchase for a plan. State only
	// changes when the resulting webhook lands; this call creates nothing
	// locally.
	CreateCheckout(ctx context.Context, accountId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	CreatePortal(ctx context.Context, accountId uuid.UUID, req *dto.PortalRequest) (*dto.PortalResponse, error)
}

type billingService struct {
	provider    billing.Provider
	planService IPlanService
	logger      logger.ILogger
	timeout     time.Duration
}

func NewBillingService(provider billing.Provider, planService IPlanService, cfg *config.Config, log logger.ILogger) IBillingService {
	return &billingService{
		provider:    provider,
		planService: planService,
		logger:      log,
		timeout:     cfg.Billing.ProviderTimeout,
	}
}

func (s *billingService) CreateCheckout(ctx context.Context, accountId uuid.UUID, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	plan, err := s.planService.GetPlan(ctx, req.PlanId)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, &entity.ValidationError{Field: "plan_id", Reason: "unknown or inactive plan"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.provider.CreateCheckoutSession(ctx, accountId, plan)
	if err != nil {
		s.logger.Error("BILLING", "Checkout session creation failed", map[string]interface{}{
			"account_id": accountId,
			"plan_id":    req.PlanId,
			"error":      err.Error(),
		})
		return nil, &entity.TransientStorageError{Op: "provider checkout", Err: err}
	}

	return &dto.CheckoutResponse{CheckoutURL: session.URL}, nil
}

func (s *billingService) CreatePortal(ctx context.Context, accountId uuid.UUID, req *dto.PortalRequest) (*dto.PortalResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	session, err := s.provider.CreatePortalSession(ctx, accountId, req.ReturnURL)
	if err != nil {
		s.logger.Error("BILLING", "Portal session creation failed", map[string]interface{}{
			"account_id": accountId,
			"error":      err.Error(),
		})
		return nil, &entity.TransientStorageError{Op: "provider portal", Err: err}
	}

	return &dto.PortalResponse{PortalURL: session.URL}, nil
}
