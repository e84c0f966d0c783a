package service

import (
	"context"
	"fmt"
	"time"

	"scanguard-be/internal/config"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/repository/unitofwork"
	"scanguard-be/pkg/billing"
)

type IResyncService interface {
	// Start runs the periodic reconciliation sweep until ctx is canceled.
	Start(ctx context.Context)
	// SweepOnce reconciles every live subscription against the provider's
	// current state and purges expired ledger rows. Exported for tests and
	// for a manual trigger.
	SweepOnce(ctx context.Context) error
}

// resyncService is the safety net under the webhook path: webhooks are the
// fast path, the sweep guarantees convergence even when deliveries are lost
// entirely.
type resyncService struct {
	uowFactory unitofwork.RepositoryFactory
	provider   billing.Provider
	reconciler IReconcilerService
	alerts     IAlertService
	logger     logger.ILogger

	interval        time.Duration
	providerTimeout time.Duration
	ledgerRetention time.Duration
	syncSLA         time.Duration
}

func NewResyncService(
	uowFactory unitofwork.RepositoryFactory,
	provider billing.Provider,
	reconciler IReconcilerService,
	alerts IAlertService,
	cfg *config.Config,
	log logger.ILogger,
) IResyncService {
	return &resyncService{
		uowFactory:      uowFactory,
		provider:        provider,
		reconciler:      reconciler,
		alerts:          alerts,
		logger:          log,
		interval:        cfg.Billing.ResyncInterval,
		providerTimeout: cfg.Billing.ProviderTimeout,
		ledgerRetention: cfg.Billing.LedgerRetention,
		syncSLA:         cfg.Billing.EntitlementSyncSLA,
	}
}

func (s *resyncService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("RESYNC", "Sweep loop stopped", nil)
				return
			case <-ticker.C:
				if err := s.SweepOnce(ctx); err != nil {
					s.logger.Error("RESYNC", "Sweep failed", map[string]interface{}{"error": err.Error()})
				}
			}
		}
	}()

	s.logger.Info("RESYNC", "Sweep loop started", map[string]interface{}{"interval": s.interval.String()})
}

func (s *resyncService) SweepOnce(ctx context.Context) error {
	started := time.Now()

	repo := s.uowFactory.NewUnitOfWork(ctx).SubscriptionRepository()
	subs, err := repo.FindAllLive(ctx)
	if err != nil {
		return &entity.TransientStorageError{Op: "resync live scan", Err: err}
	}

	var drifted int
	for _, sub := range subs {
		// Cancellation is honored between accounts, never mid-account, so a
		// shutdown cannot leave one account half reconciled.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.resyncOne(ctx, sub) {
			drifted++
		}
	}

	purged, err := s.purgeLedger(ctx)
	if err != nil {
		s.logger.Warn("RESYNC", "Ledger purge failed", map[string]interface{}{"error": err.Error()})
	}

	s.logger.Info("RESYNC", "Sweep complete", map[string]interface{}{
		"subscriptions": len(subs),
		"drifted":       drifted,
		"purged_rows":   purged,
		"duration":      time.Since(started).String(),
	})
	return nil
}

// resyncOne pulls the provider's snapshot for one subscription and feeds it
// through the same reconciler the webhook path uses. Returns true when the
// snapshot had drifted, meaning a webhook delivery was lost.
func (s *resyncService) resyncOne(ctx context.Context, sub *entity.Subscription) bool {
	fetchCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()

	event, err := s.provider.FetchSubscription(fetchCtx, sub.ProviderSubscriptionId)
	if err != nil {
		s.logger.Warn("RESYNC", "Provider fetch failed", map[string]interface{}{
			"provider_subscription_id": sub.ProviderSubscriptionId,
			"error":                    err.Error(),
		})
		return false
	}

	result, err := s.reconciler.Apply(ctx, event)
	if err != nil {
		s.logger.Error("RESYNC", "Snapshot apply failed", map[string]interface{}{
			"provider_subscription_id": sub.ProviderSubscriptionId,
			"error":                    err.Error(),
		})
		return false
	}

	if result.Outcome == entity.OutcomeApplied && result.Changed {
		// The sweep finding drift means the account sat out of sync for up
		// to a full interval, far beyond the accepted sync latency.
		s.alerts.Raise(ctx, AlertResyncLagging, "Entitlement drift corrected by resync",
			fmt.Sprintf("subscription %s drifted (%s -> %s); webhook delivery likely lost, sync SLA %s exceeded",
				sub.ProviderSubscriptionId, result.OldStatus, result.NewStatus, s.syncSLA))
		return true
	}
	return false
}

func (s *resyncService) purgeLedger(ctx context.Context) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	cutoff := time.Now().Add(-s.ledgerRetention)
	return uow.WebhookEventRepository().PurgeProcessedBefore(ctx, cutoff)
}
