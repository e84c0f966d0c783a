package mapper

import (
	"scanguard-be/internal/entity"
	"scanguard-be/internal/model"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.Subscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	return &entity.Subscription{
		Id:                     s.Id,
		AccountId:              s.AccountId,
		PlanId:                 s.PlanId,
		Status:                 entity.SubscriptionStatus(s.Status),
		CurrentPeriodStart:     s.CurrentPeriodStart,
		CurrentPeriodEnd:       s.CurrentPeriodEnd,
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		ProviderSubscriptionId: s.ProviderSubscriptionId,
		Revision:               s.Revision,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.Subscription {
	if s == nil {
		return nil
	}
	return &model.Subscription{
		Id:                     s.Id,
		AccountId:              s.AccountId,
		PlanId:                 s.PlanId,
		Status:                 string(s.Status),
		CurrentPeriodStart:     s.CurrentPeriodStart,
		CurrentPeriodEnd:       s.CurrentPeriodEnd,
		CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		ProviderSubscriptionId: s.ProviderSubscriptionId,
		Revision:               s.Revision,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}
