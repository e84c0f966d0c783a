package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"scanguard-be/internal/config"
	"scanguard-be/internal/entity"
	"scanguard-be/pkg/billing"
	"scanguard-be/pkg/metering"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves canned snapshots keyed by provider subscription id.
type fakeProvider struct {
	snapshots map[string]*entity.ProviderEvent
	fetches   int
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, accountId uuid.UUID, plan *entity.Plan) (*billing.CheckoutSession, error) {
	return &billing.CheckoutSession{URL: "https://pay.example/checkout"}, nil
}

func (p *fakeProvider) CreatePortalSession(ctx context.Context, accountId uuid.UUID, returnURL string) (*billing.PortalSession, error) {
	return &billing.PortalSession{URL: "https://pay.example/portal"}, nil
}

func (p *fakeProvider) FetchSubscription(ctx context.Context, providerSubscriptionId string) (*entity.ProviderEvent, error) {
	p.fetches++
	if event, found := p.snapshots[providerSubscriptionId]; found {
		return event, nil
	}
	return nil, fmt.Errorf("unknown subscription %s", providerSubscriptionId)
}

func resyncTestConfig() *config.Config {
	return &config.Config{
		Billing: config.BillingConfig{
			ResyncInterval:     time.Hour,
			ProviderTimeout:    time.Second,
			LedgerRetention:    30 * 24 * time.Hour,
			EntitlementSyncSLA: time.Minute,
		},
	}
}

func newResyncEnv(store *fakeStore, provider *fakeProvider) (IResyncService, *fakeAlertService) {
	factory := &fakeFactory{store: store}
	alerts := &fakeAlertService{}
	meter := metering.NewMeter(factory, noopLogger{})
	reconciler := NewReconcilerService(factory, meter, alerts, noopLogger{})
	return NewResyncService(factory, provider, reconciler, alerts, resyncTestConfig(), noopLogger{}), alerts
}

func TestSweepCorrectsDriftAndAlerts(t *testing.T) {
	store := newFakeStore()
	accountId := uuid.New()
	planId := uuid.New()
	now := time.Now()
	period := entity.Period{Start: now.Add(-24 * time.Hour), End: now.Add(29 * 24 * time.Hour)}

	subId := uuid.New()
	store.subscriptions[subId] = &entity.Subscription{
		Id:                     subId,
		AccountId:              accountId,
		PlanId:                 planId,
		Status:                 entity.SubscriptionStatusActive,
		CurrentPeriodStart:     period.Start,
		CurrentPeriodEnd:       period.End,
		ProviderSubscriptionId: "sub_A",
		Revision:               1,
	}

	// The provider knows about a cancellation whose webhook never arrived.
	provider := &fakeProvider{snapshots: map[string]*entity.ProviderEvent{
		"sub_A": snapshotEvent("resync:sub_A:2", 2, accountId, planId, "sub_A", entity.SubscriptionStatusCanceled, period),
	}}

	svc, alerts := newResyncEnv(store, provider)
	require.NoError(t, svc.SweepOnce(context.Background()))

	live, _ := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	assert.Nil(t, live)
	assert.Len(t, alerts.byKind(AlertResyncLagging), 1)
}

func TestSweepInSyncIsQuiet(t *testing.T) {
	store := newFakeStore()
	accountId := uuid.New()
	planId := uuid.New()
	now := time.Now()
	period := entity.Period{Start: now.Add(-24 * time.Hour), End: now.Add(29 * 24 * time.Hour)}

	subId := uuid.New()
	store.subscriptions[subId] = &entity.Subscription{
		Id:                     subId,
		AccountId:              accountId,
		PlanId:                 planId,
		Status:                 entity.SubscriptionStatusActive,
		CurrentPeriodStart:     period.Start,
		CurrentPeriodEnd:       period.End,
		ProviderSubscriptionId: "sub_A",
		Revision:               2,
	}

	provider := &fakeProvider{snapshots: map[string]*entity.ProviderEvent{
		"sub_A": snapshotEvent("resync:sub_A:2", 2, accountId, planId, "sub_A", entity.SubscriptionStatusActive, period),
	}}

	svc, alerts := newResyncEnv(store, provider)
	require.NoError(t, svc.SweepOnce(context.Background()))

	assert.Equal(t, 1, provider.fetches)
	assert.Empty(t, alerts.raised)

	sub, _ := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	require.NotNil(t, sub)
	assert.Equal(t, int64(2), sub.Revision)
}

func TestSweepPurgesExpiredLedgerRows(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{snapshots: map[string]*entity.ProviderEvent{}}

	old := time.Now().Add(-60 * 24 * time.Hour)
	recent := time.Now().Add(-time.Hour)
	store.ledger["evt_old"] = &entity.WebhookLedgerEntry{
		ProviderEventId: "evt_old",
		ProcessedAt:     &old,
		Outcome:         entity.OutcomeApplied,
	}
	store.ledger["evt_recent"] = &entity.WebhookLedgerEntry{
		ProviderEventId: "evt_recent",
		ProcessedAt:     &recent,
		Outcome:         entity.OutcomeApplied,
	}
	store.ledger["evt_pending"] = &entity.WebhookLedgerEntry{
		ProviderEventId: "evt_pending",
	}

	svc, _ := newResyncEnv(store, provider)
	require.NoError(t, svc.SweepOnce(context.Background()))

	assert.NotContains(t, store.ledger, "evt_old")
	// Recent rows stay for duplicate detection; pending rows are never purged.
	assert.Contains(t, store.ledger, "evt_recent")
	assert.Contains(t, store.ledger, "evt_pending")
}

func TestSweepStopsAtCancellation(t *testing.T) {
	store := newFakeStore()
	accountId := uuid.New()
	for i := 0; i < 3; i++ {
		subId := uuid.New()
		store.subscriptions[subId] = &entity.Subscription{
			Id:                     subId,
			AccountId:              accountId,
			PlanId:                 uuid.New(),
			Status:                 entity.SubscriptionStatusActive,
			ProviderSubscriptionId: fmt.Sprintf("sub_%d", i),
			Revision:               1,
		}
	}

	provider := &fakeProvider{snapshots: map[string]*entity.ProviderEvent{}}
	svc, _ := newResyncEnv(store, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SweepOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, provider.fetches)
}
