package mapper

import (
	"scanguard-be/internal/entity"
	"scanguard-be/internal/model"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

func (m *UsageMapper) ToEntity(c *model.UsageCounter) *entity.UsageCounter {
	if c == nil {
		return nil
	}
	return &entity.UsageCounter{
		Id:          c.Id,
		AccountId:   c.AccountId,
		Metric:      entity.Metric(c.Metric),
		PeriodStart: c.PeriodStart,
		PeriodEnd:   c.PeriodEnd,
		Used:        c.Used,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m *UsageMapper) ToModel(c *entity.UsageCounter) *model.UsageCounter {
	if c == nil {
		return nil
	}
	return &model.UsageCounter{
		Id:          c.Id,
		AccountId:   c.AccountId,
		Metric:      string(c.Metric),
		PeriodStart: c.PeriodStart,
		PeriodEnd:   c.PeriodEnd,
		Used:        c.Used,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
