package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/repository/specification"
	"scanguard-be/internal/repository/unitofwork"
	"scanguard-be/pkg/metering"

	"github.com/google/uuid"
)

// ApplyResult tells the caller what a reconciliation did, so post-commit
// side effects (domain events, websocket pushes) can be driven from it.
type ApplyResult struct {
	Outcome      entity.Outcome
	Changed      bool
	AccountId    uuid.UUID
	OldStatus    entity.SubscriptionStatus
	NewStatus    entity.SubscriptionStatus
	PeriodRolled bool
	NewPeriod    entity.Period
}

type IReconcilerService interface {
	// LockAccount serializes all writers for one account. The returned func
	// releases the lock; callers must defer it.
	LockAccount(accountId uuid.UUID) func()
	// ApplyInTx converges local state to the event's snapshot inside the
	// caller's transaction. The caller holds the account lock and commits.
	ApplyInTx(ctx context.Context, uow unitofwork.UnitOfWork, event *entity.ProviderEvent) (*ApplyResult, error)
	// Apply is ApplyInTx with lock and transaction management included, for
	// callers outside the webhook path (resync sweep).
	Apply(ctx context.Context, event *entity.ProviderEvent) (*ApplyResult, error)
}

// legalTransitions is the provider's documented lifecycle. A snapshot that
// implies an undocumented jump is still applied (the provider is the source
// of truth) but raises an operator alert.
var legalTransitions = map[entity.SubscriptionStatus]map[entity.SubscriptionStatus]bool{
	entity.SubscriptionStatusIncomplete: {
		entity.SubscriptionStatusIncomplete: true,
		entity.SubscriptionStatusTrialing:   true,
		entity.SubscriptionStatusActive:     true,
		entity.SubscriptionStatusCanceled:   true,
	},
	entity.SubscriptionStatusTrialing: {
		entity.SubscriptionStatusTrialing: true,
		entity.SubscriptionStatusActive:   true,
		entity.SubscriptionStatusPastDue:  true,
		entity.SubscriptionStatusCanceled: true,
	},
	entity.SubscriptionStatusActive: {
		entity.SubscriptionStatusActive:   true,
		entity.SubscriptionStatusPastDue:  true,
		entity.SubscriptionStatusCanceled: true,
	},
	entity.SubscriptionStatusPastDue: {
		entity.SubscriptionStatusPastDue:  true,
		entity.SubscriptionStatusActive:   true,
		entity.SubscriptionStatusCanceled: true,
	},
	entity.SubscriptionStatusCanceled: {
		entity.SubscriptionStatusCanceled: true,
	},
}

type reconcilerService struct {
	uowFactory   unitofwork.RepositoryFactory
	meter        *metering.Meter
	alertService IAlertService
	logger       logger.ILogger

	accountLocks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewReconcilerService(
	uowFactory unitofwork.RepositoryFactory,
	meter *metering.Meter,
	alertService IAlertService,
	log logger.ILogger,
) IReconcilerService {
	return &reconcilerService{
		uowFactory:   uowFactory,
		meter:        meter,
		alertService: alertService,
		logger:       log,
	}
}

func (s *reconcilerService) LockAccount(accountId uuid.UUID) func() {
	v, _ := s.accountLocks.LoadOrStore(accountId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *reconcilerService) Apply(ctx context.Context, event *entity.ProviderEvent) (*ApplyResult, error) {
	unlock := s.LockAccount(event.Subscription.AccountId)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, &entity.TransientStorageError{Op: "reconcile begin", Err: err}
	}
	defer uow.Rollback()

	result, err := s.ApplyInTx(ctx, uow, event)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, &entity.TransientStorageError{Op: "reconcile commit", Err: err}
	}
	return result, nil
}

func (s *reconcilerService) ApplyInTx(ctx context.Context, uow unitofwork.UnitOfWork, event *entity.ProviderEvent) (*ApplyResult, error) {
	snapshot := event.Subscription
	result := &ApplyResult{AccountId: snapshot.AccountId}

	if !s.actionable(event.Type) {
		result.Outcome = entity.OutcomeIgnored
		s.logger.Info("RECONCILER", "Event type not actionable", map[string]interface{}{
			"event_id": event.ProviderEventId,
			"type":     string(event.Type),
		})
		return result, nil
	}

	subRepo := uow.SubscriptionRepository()

	existing, err := subRepo.FindOne(ctx, specification.ByProviderSubscriptionID{ProviderSubscriptionID: snapshot.ProviderSubscriptionId})
	if err != nil {
		return nil, &entity.TransientStorageError{Op: "subscription lookup", Err: err}
	}

	// Revision guard: an older or equal snapshot is acknowledged and dropped.
	// This is what makes out-of-order delivery harmless.
	if existing != nil && event.Revision <= existing.Revision {
		result.Outcome = entity.OutcomeStale
		result.OldStatus = existing.Status
		result.NewStatus = existing.Status
		s.logger.Info("RECONCILER", "Stale event dropped", map[string]interface{}{
			"event_id":        event.ProviderEventId,
			"event_revision":  event.Revision,
			"stored_revision": existing.Revision,
		})
		return result, nil
	}

	if existing != nil {
		s.checkTransition(ctx, existing.Status, snapshot.Status, event)

		result.OldStatus = existing.Status
		oldPeriodStart := existing.CurrentPeriodStart

		existing.PlanId = snapshot.PlanId
		existing.Status = snapshot.Status
		existing.CurrentPeriodStart = snapshot.CurrentPeriodStart
		existing.CurrentPeriodEnd = snapshot.CurrentPeriodEnd
		existing.CancelAtPeriodEnd = snapshot.CancelAtPeriodEnd
		existing.Revision = event.Revision

		if err := subRepo.Update(ctx, existing); err != nil {
			return nil, &entity.TransientStorageError{Op: "subscription update", Err: err}
		}

		result.Changed = true
		result.NewStatus = snapshot.Status
		if !snapshot.CurrentPeriodStart.Equal(oldPeriodStart) && snapshot.Status.IsLive() {
			result.PeriodRolled = true
			result.NewPeriod = entity.Period{Start: snapshot.CurrentPeriodStart, End: snapshot.CurrentPeriodEnd}
			if err := s.meter.Rollover(ctx, uow, snapshot.AccountId, result.NewPeriod); err != nil {
				return nil, err
			}
		}
	} else {
		// First sight of this provider subscription. If the account already
		// has a different live row (plan change via a fresh checkout), the
		// old row is closed out so the one-live-row invariant holds.
		if snapshot.Status.IsLive() {
			if err := s.supersedeLive(ctx, uow, snapshot, event); err != nil {
				return nil, err
			}
		}

		created := &entity.Subscription{
			Id:                     uuid.New(),
			AccountId:              snapshot.AccountId,
			PlanId:                 snapshot.PlanId,
			Status:                 snapshot.Status,
			CurrentPeriodStart:     snapshot.CurrentPeriodStart,
			CurrentPeriodEnd:       snapshot.CurrentPeriodEnd,
			CancelAtPeriodEnd:      snapshot.CancelAtPeriodEnd,
			ProviderSubscriptionId: snapshot.ProviderSubscriptionId,
			Revision:               event.Revision,
		}
		if err := subRepo.Create(ctx, created); err != nil {
			return nil, &entity.TransientStorageError{Op: "subscription create", Err: err}
		}

		result.Changed = true
		result.NewStatus = snapshot.Status
		if snapshot.Status.IsLive() {
			result.PeriodRolled = true
			result.NewPeriod = entity.Period{Start: snapshot.CurrentPeriodStart, End: snapshot.CurrentPeriodEnd}
			if err := s.meter.Rollover(ctx, uow, snapshot.AccountId, result.NewPeriod); err != nil {
				return nil, err
			}
		}
	}

	result.Outcome = entity.OutcomeApplied
	s.logger.Info("RECONCILER", "Snapshot applied", map[string]interface{}{
		"event_id":   event.ProviderEventId,
		"account_id": snapshot.AccountId,
		"old_status": string(result.OldStatus),
		"new_status": string(result.NewStatus),
		"revision":   event.Revision,
	})
	return result, nil
}

// supersedeLive cancels a live row that belongs to a DIFFERENT provider
// subscription than the incoming one.
func (s *reconcilerService) supersedeLive(ctx context.Context, uow unitofwork.UnitOfWork, snapshot entity.SubscriptionSnapshot, event *entity.ProviderEvent) error {
	live, err := uow.SubscriptionRepository().FindLiveByAccount(ctx, snapshot.AccountId)
	if err != nil {
		return &entity.TransientStorageError{Op: "live subscription lookup", Err: err}
	}
	if live == nil || live.ProviderSubscriptionId == snapshot.ProviderSubscriptionId {
		return nil
	}

	live.Status = entity.SubscriptionStatusCanceled
	live.CancelAtPeriodEnd = false
	if err := uow.SubscriptionRepository().Update(ctx, live); err != nil {
		return &entity.TransientStorageError{Op: "supersede live subscription", Err: err}
	}

	s.logger.Warn("RECONCILER", "Superseded live subscription", map[string]interface{}{
		"account_id":   snapshot.AccountId,
		"old_provider": live.ProviderSubscriptionId,
		"new_provider": snapshot.ProviderSubscriptionId,
		"event_id":     event.ProviderEventId,
	})
	return nil
}

// checkTransition alerts on lifecycle jumps the provider doesn't document.
// The snapshot is applied regardless; the alert exists so an operator can
// investigate a provider-side anomaly.
func (s *reconcilerService) checkTransition(ctx context.Context, from, to entity.SubscriptionStatus, event *entity.ProviderEvent) {
	if legal, ok := legalTransitions[from]; ok && legal[to] {
		return
	}

	detail := fmt.Sprintf("subscription %s moved %s -> %s via event %s at %s",
		event.Subscription.ProviderSubscriptionId, from, to, event.ProviderEventId, time.Now().Format(time.RFC3339))
	s.logger.Warn("RECONCILER", "Anomalous status transition", map[string]interface{}{
		"from":     string(from),
		"to":       string(to),
		"event_id": event.ProviderEventId,
	})
	s.alertService.Raise(ctx, AlertAnomalousTransition, "Anomalous subscription transition", detail)
}

func (s *reconcilerService) actionable(t entity.EventType) bool {
	switch t {
	case entity.EventCheckoutCompleted, entity.EventSubscriptionCreated,
		entity.EventSubscriptionUpdated, entity.EventSubscriptionDeleted,
		entity.EventInvoicePaid, entity.EventInvoicePaymentFailed:
		return true
	}
	return false
}
