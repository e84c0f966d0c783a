package mapper

import (
	"scanguard-be/internal/entity"
	"scanguard-be/internal/model"
)

type PlanMapper struct{}

func NewPlanMapper() *PlanMapper {
	return &PlanMapper{}
}

func (m *PlanMapper) ToEntity(p *model.Plan) *entity.Plan {
	if p == nil {
		return nil
	}
	return &entity.Plan{
		Id:                    p.Id,
		Name:                  p.Name,
		DisplayName:           p.DisplayName,
		PriceMonthly:          p.PriceMonthly,
		MaxScansPerMonth:      p.MaxScansPerMonth,
		MaxCloudAccounts:      p.MaxCloudAccounts,
		HasAiChat:             p.HasAiChat,
		HasImpactTracking:     p.HasImpactTracking,
		HasEmailNotifications: p.HasEmailNotifications,
		HasApiAccess:          p.HasApiAccess,
		HasPrioritySupport:    p.HasPrioritySupport,
		IsActive:              p.IsActive,
		SortOrder:             p.SortOrder,
		CreatedAt:             p.CreatedAt,
	}
}

func (m *PlanMapper) ToModel(p *entity.Plan) *model.Plan {
	if p == nil {
		return nil
	}
	return &model.Plan{
		Id:                    p.Id,
		Name:                  p.Name,
		DisplayName:           p.DisplayName,
		PriceMonthly:          p.PriceMonthly,
		MaxScansPerMonth:      p.MaxScansPerMonth,
		MaxCloudAccounts:      p.MaxCloudAccounts,
		HasAiChat:             p.HasAiChat,
		HasImpactTracking:     p.HasImpactTracking,
		HasEmailNotifications: p.HasEmailNotifications,
		HasApiAccess:          p.HasApiAccess,
		HasPrioritySupport:    p.HasPrioritySupport,
		IsActive:              p.IsActive,
		SortOrder:             p.SortOrder,
		CreatedAt:             p.CreatedAt,
	}
}
