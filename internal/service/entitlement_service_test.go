package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/pkg/metering"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntitlements(store *fakeStore) IEntitlementService {
	factory := &fakeFactory{store: store}
	meter := metering.NewMeter(factory, noopLogger{})
	planService := NewPlanService(factory, noopLogger{})
	return NewEntitlementService(factory, planService, meter, noopLogger{})
}

func seedPlan(store *fakeStore, maxScans, maxAccounts *int64, aiChat bool) uuid.UUID {
	planId := uuid.New()
	store.plans[planId] = &entity.Plan{
		Id:               planId,
		Name:             "team",
		DisplayName:      "Team",
		MaxScansPerMonth: maxScans,
		MaxCloudAccounts: maxAccounts,
		HasAiChat:        aiChat,
		IsActive:         true,
	}
	return planId
}

func seedLiveSubscription(store *fakeStore, accountId, planId uuid.UUID) {
	now := time.Now()
	subId := uuid.New()
	store.subscriptions[subId] = &entity.Subscription{
		Id:                     subId,
		AccountId:              accountId,
		PlanId:                 planId,
		Status:                 entity.SubscriptionStatusActive,
		CurrentPeriodStart:     now.Add(-24 * time.Hour),
		CurrentPeriodEnd:       now.Add(29 * 24 * time.Hour),
		ProviderSubscriptionId: "sub_A",
		Revision:               1,
	}
}

func TestFreeTierDefaults(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()

	sub, err := svc.GetSubscription(context.Background(), accountId)
	require.NoError(t, err)
	assert.Equal(t, "free", sub.PlanName)
	assert.Equal(t, "free", sub.Status)
	assert.Empty(t, sub.Features)

	enabled, err := svc.CheckFeature(context.Background(), accountId, entity.FeatureAiChat)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFreeTierQuotaDeniesBeyondLimit(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()

	// The free plan allows 3 scans per calendar month.
	for i := 0; i < 3; i++ {
		decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 1)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, int64(3), decision.Used)
	assert.Equal(t, int64(0), decision.Remaining())
}

func TestPaidPlanFeatureAndQuota(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()
	limit := int64(10)
	planId := seedPlan(store, &limit, &limit, true)
	seedLiveSubscription(store, accountId, planId)

	enabled, err := svc.CheckFeature(context.Background(), accountId, entity.FeatureAiChat)
	require.NoError(t, err)
	assert.True(t, enabled)

	decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 4)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(4), decision.Used)
	assert.Equal(t, int64(6), decision.Remaining())
}

func TestCanceledSubscriptionFallsBackToFreeTier(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	reconciler, _ := newTestReconciler(store)

	accountId := uuid.New()
	limit := int64(10)
	planId := seedPlan(store, &limit, &limit, true)
	seedLiveSubscription(store, accountId, planId)

	enabled, err := svc.CheckFeature(context.Background(), accountId, entity.FeatureAiChat)
	require.NoError(t, err)
	require.True(t, enabled)

	// The provider reports the subscription gone at a newer revision.
	event := snapshotEvent("evt_cancel", 2, accountId, planId, "sub_A", entity.SubscriptionStatusCanceled, currentPeriod())
	event.Type = entity.EventSubscriptionDeleted
	result, err := reconciler.Apply(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, entity.OutcomeApplied, result.Outcome)

	enabled, err = svc.CheckFeature(context.Background(), accountId, entity.FeatureAiChat)
	require.NoError(t, err)
	assert.False(t, enabled)

	sub, err := svc.GetSubscription(context.Background(), accountId)
	require.NoError(t, err)
	assert.Equal(t, "free", sub.PlanName)
}

func TestUnlimitedMetricAlwaysAllows(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()
	planId := seedPlan(store, nil, nil, false)
	seedLiveSubscription(store, accountId, planId)

	decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 1000)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Nil(t, decision.Limit)
	assert.Equal(t, int64(-1), decision.Remaining())
}

func TestUnknownMetricDenied(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()
	limit := int64(10)
	planId := seedPlan(store, &limit, &limit, false)
	seedLiveSubscription(store, accountId, planId)

	decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.Metric("reports"), 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestReleaseHandsQuotaBack(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()
	limit := int64(3)
	planId := seedPlan(store, &limit, &limit, false)
	seedLiveSubscription(store, accountId, planId)

	for i := 0; i < 3; i++ {
		decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 1)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	}

	// A scan errored downstream; its slot is handed back explicitly.
	require.NoError(t, svc.ReleaseQuota(context.Background(), accountId, entity.MetricScans, 1))

	decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(3), decision.Used)
}

func TestConcurrentConsumersNeverOversell(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()
	limit := int64(5)
	planId := seedPlan(store, &limit, &limit, false)
	seedLiveSubscription(store, accountId, planId)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var allowed int

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := svc.CheckAndConsumeQuota(context.Background(), accountId, entity.MetricScans, 1)
			if err != nil {
				return
			}
			if decision.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int(limit), allowed)

	usage, err := svc.GetUsage(context.Background(), accountId)
	require.NoError(t, err)
	for _, u := range usage {
		if u.Metric == string(entity.MetricScans) {
			assert.Equal(t, limit, u.Used)
		}
	}
}

func TestGetUsageListsAllMeteredMetrics(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)
	accountId := uuid.New()

	usage, err := svc.GetUsage(context.Background(), accountId)
	require.NoError(t, err)
	assert.Len(t, usage, len(entity.MeteredMetrics))
	for _, u := range usage {
		assert.Equal(t, int64(0), u.Used)
	}
}

func TestRejectsNonPositiveAmount(t *testing.T) {
	store := newFakeStore()
	svc := newTestEntitlements(store)

	_, err := svc.CheckAndConsumeQuota(context.Background(), uuid.New(), entity.MetricScans, 0)
	var valErr *entity.ValidationError
	assert.ErrorAs(t, err, &valErr)

	err = svc.ReleaseQuota(context.Background(), uuid.New(), entity.MetricScans, -1)
	assert.ErrorAs(t, err, &valErr)
}
