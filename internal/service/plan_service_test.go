package service

import (
	"context"
	"testing"

	"scanguard-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlanCachesById(t *testing.T) {
	store := newFakeStore()
	svc := NewPlanService(&fakeFactory{store: store}, noopLogger{})

	limit := int64(50)
	planId := seedPlan(store, &limit, &limit, true)

	plan, err := svc.GetPlan(context.Background(), planId)
	require.NoError(t, err)
	require.NotNil(t, plan)

	// Plans are immutable, so the cached copy stays valid even after the
	// backing row disappears.
	delete(store.plans, planId)

	cached, err := svc.GetPlan(context.Background(), planId)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, plan.Id, cached.Id)
}

func TestGetPlanUnknownIdIsNil(t *testing.T) {
	svc := NewPlanService(&fakeFactory{store: newFakeStore()}, noopLogger{})

	plan, err := svc.GetPlan(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestGetPlansListsActiveCatalog(t *testing.T) {
	store := newFakeStore()
	svc := NewPlanService(&fakeFactory{store: store}, noopLogger{})

	limit := int64(50)
	seedPlan(store, &limit, &limit, true)

	inactiveId := uuid.New()
	store.plans[inactiveId] = &entity.Plan{Id: inactiveId, Name: "legacy", IsActive: false}

	plans, err := svc.GetPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "team", plans[0].Name)
	assert.Contains(t, plans[0].Features, string(entity.FeatureAiChat))
}

func TestDefaultPlanIsFreeTier(t *testing.T) {
	svc := NewPlanService(&fakeFactory{store: newFakeStore()}, noopLogger{})
	plan := svc.DefaultPlan()
	assert.Equal(t, "free", plan.Name)
}
