package service

import (
	"context"
	"testing"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/pkg/metering"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(store *fakeStore) (IReconcilerService, *fakeAlertService) {
	factory := &fakeFactory{store: store}
	alerts := &fakeAlertService{}
	meter := metering.NewMeter(factory, noopLogger{})
	return NewReconcilerService(factory, meter, alerts, noopLogger{}), alerts
}

func snapshotEvent(eventId string, revision int64, accountId, planId uuid.UUID, providerSubId string, status entity.SubscriptionStatus, period entity.Period) *entity.ProviderEvent {
	return &entity.ProviderEvent{
		ProviderEventId: eventId,
		Type:            entity.EventSubscriptionUpdated,
		OccurredAt:      time.Now(),
		Revision:        revision,
		Subscription: entity.SubscriptionSnapshot{
			ProviderSubscriptionId: providerSubId,
			AccountId:              accountId,
			PlanId:                 planId,
			Status:                 status,
			CurrentPeriodStart:     period.Start,
			CurrentPeriodEnd:       period.End,
		},
	}
}

func currentPeriod() entity.Period {
	now := time.Now()
	return entity.Period{Start: now.Add(-24 * time.Hour), End: now.Add(29 * 24 * time.Hour)}
}

func TestApplyCreatesSubscription(t *testing.T) {
	store := newFakeStore()
	reconciler, _ := newTestReconciler(store)

	accountId := uuid.New()
	event := snapshotEvent("evt_1", 1, accountId, uuid.New(), "sub_A", entity.SubscriptionStatusActive, currentPeriod())

	result, err := reconciler.Apply(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeApplied, result.Outcome)
	assert.True(t, result.Changed)
	assert.Equal(t, entity.SubscriptionStatusActive, result.NewStatus)
	assert.True(t, result.PeriodRolled)

	stored, err := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "sub_A", stored.ProviderSubscriptionId)
	assert.Equal(t, int64(1), stored.Revision)

	// Rollover pre-creates a zero counter per metered metric.
	assert.Len(t, store.counters, len(entity.MeteredMetrics))
}

func TestStaleEventDropped(t *testing.T) {
	store := newFakeStore()
	reconciler, _ := newTestReconciler(store)

	accountId := uuid.New()
	planId := uuid.New()
	period := currentPeriod()

	_, err := reconciler.Apply(context.Background(), snapshotEvent("evt_1", 5, accountId, planId, "sub_A", entity.SubscriptionStatusActive, period))
	require.NoError(t, err)

	result, err := reconciler.Apply(context.Background(), snapshotEvent("evt_2", 3, accountId, planId, "sub_A", entity.SubscriptionStatusPastDue, period))
	require.NoError(t, err)

	assert.Equal(t, entity.OutcomeStale, result.Outcome)
	assert.False(t, result.Changed)

	stored, _ := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	require.NotNil(t, stored)
	assert.Equal(t, entity.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, int64(5), stored.Revision)
}

func TestOutOfOrderDeliveryConverges(t *testing.T) {
	store := newFakeStore()
	reconciler, _ := newTestReconciler(store)

	accountId := uuid.New()
	planId := uuid.New()
	period := currentPeriod()

	// The cancellation (revision 2) arrives before the activation (revision 1).
	_, err := reconciler.Apply(context.Background(), snapshotEvent("evt_cancel", 2, accountId, planId, "sub_A", entity.SubscriptionStatusCanceled, period))
	require.NoError(t, err)

	result, err := reconciler.Apply(context.Background(), snapshotEvent("evt_activate", 1, accountId, planId, "sub_A", entity.SubscriptionStatusActive, period))
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeStale, result.Outcome)

	// The account must end canceled regardless of arrival order.
	live, _ := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	assert.Nil(t, live)
}

func TestNewProviderSubscriptionSupersedesLive(t *testing.T) {
	store := newFakeStore()
	reconciler, _ := newTestReconciler(store)

	accountId := uuid.New()
	period := currentPeriod()

	_, err := reconciler.Apply(context.Background(), snapshotEvent("evt_1", 1, accountId, uuid.New(), "sub_old", entity.SubscriptionStatusActive, period))
	require.NoError(t, err)

	// Plan change through a fresh checkout arrives as a new provider
	// subscription for the same account.
	result, err := reconciler.Apply(context.Background(), snapshotEvent("evt_2", 1, accountId, uuid.New(), "sub_new", entity.SubscriptionStatusActive, period))
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeApplied, result.Outcome)

	live, _ := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	require.NotNil(t, live)
	assert.Equal(t, "sub_new", live.ProviderSubscriptionId)

	all, _ := (&fakeSubscriptionRepo{store: store}).FindAll(context.Background())
	assert.Len(t, all, 2)
	for _, sub := range all {
		if sub.ProviderSubscriptionId == "sub_old" {
			assert.Equal(t, entity.SubscriptionStatusCanceled, sub.Status)
		}
	}
}

func TestAnomalousTransitionAppliesAndAlerts(t *testing.T) {
	store := newFakeStore()
	reconciler, alerts := newTestReconciler(store)

	accountId := uuid.New()
	planId := uuid.New()
	period := currentPeriod()

	_, err := reconciler.Apply(context.Background(), snapshotEvent("evt_1", 1, accountId, planId, "sub_A", entity.SubscriptionStatusCanceled, period))
	require.NoError(t, err)

	// canceled -> active is not a documented transition, but the provider's
	// snapshot still wins.
	result, err := reconciler.Apply(context.Background(), snapshotEvent("evt_2", 2, accountId, planId, "sub_A", entity.SubscriptionStatusActive, period))
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeApplied, result.Outcome)

	live, _ := (&fakeSubscriptionRepo{store: store}).FindLiveByAccount(context.Background(), accountId)
	require.NotNil(t, live)
	assert.Equal(t, entity.SubscriptionStatusActive, live.Status)

	assert.Len(t, alerts.byKind(AlertAnomalousTransition), 1)
}

func TestRenewalRollsPeriodAndResetsCounters(t *testing.T) {
	store := newFakeStore()
	reconciler, _ := newTestReconciler(store)

	accountId := uuid.New()
	planId := uuid.New()
	now := time.Now()
	p1 := entity.Period{Start: now.Add(-30 * 24 * time.Hour), End: now.Add(-time.Hour)}
	p2 := entity.Period{Start: now.Add(-time.Hour), End: now.Add(29 * 24 * time.Hour)}

	_, err := reconciler.Apply(context.Background(), snapshotEvent("evt_1", 1, accountId, planId, "sub_A", entity.SubscriptionStatusActive, p1))
	require.NoError(t, err)

	result, err := reconciler.Apply(context.Background(), snapshotEvent("evt_renewal", 2, accountId, planId, "sub_A", entity.SubscriptionStatusActive, p2))
	require.NoError(t, err)

	assert.True(t, result.PeriodRolled)
	assert.Equal(t, p2.Start.Unix(), result.NewPeriod.Start.Unix())

	// Fresh zero counters exist for the new window; old rows stay as history.
	for _, metric := range entity.MeteredMetrics {
		counter, err := (&fakeUsageRepo{store: store}).Find(context.Background(), accountId, metric, p2.Start)
		require.NoError(t, err)
		require.NotNil(t, counter)
		assert.Equal(t, int64(0), counter.Used)
	}
}

func TestUnrecognizedEventTypeIgnored(t *testing.T) {
	store := newFakeStore()
	reconciler, _ := newTestReconciler(store)

	event := snapshotEvent("evt_1", 1, uuid.New(), uuid.New(), "sub_A", entity.SubscriptionStatusActive, currentPeriod())
	event.Type = entity.EventType("customer.updated")

	result, err := reconciler.Apply(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeIgnored, result.Outcome)
	assert.False(t, result.Changed)
	assert.Empty(t, store.subscriptions)
}
