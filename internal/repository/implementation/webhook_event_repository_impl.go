package implementation

import (
	"context"
	"errors"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/internal/mapper"
	"scanguard-be/internal/model"
	"scanguard-be/internal/repository/contract"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WebhookMapper
}

func NewWebhookEventRepository(db *gorm.DB) contract.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewWebhookMapper(),
	}
}

func (r *WebhookEventRepositoryImpl) InsertPending(ctx context.Context, entry *entity.WebhookLedgerEntry) (bool, error) {
	m := r.mapper.ToModel(entry)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *WebhookEventRepositoryImpl) FindByEventId(ctx context.Context, providerEventId string) (*entity.WebhookLedgerEntry, error) {
	var m model.WebhookEvent
	err := r.db.WithContext(ctx).Where("provider_event_id = ?", providerEventId).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *WebhookEventRepositoryImpl) MarkProcessed(ctx context.Context, providerEventId string, outcome entity.Outcome) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("provider_event_id = ?", providerEventId).
		Updates(map[string]interface{}{
			"processed_at": &now,
			"outcome":      string(outcome),
		}).Error
}

func (r *WebhookEventRepositoryImpl) IncrementAttempts(ctx context.Context, providerEventId string) (int, error) {
	err := r.db.WithContext(ctx).Model(&model.WebhookEvent{}).
		Where("provider_event_id = ?", providerEventId).
		Update("attempts", gorm.Expr("attempts + 1")).Error
	if err != nil {
		return 0, err
	}
	var m model.WebhookEvent
	if err := r.db.WithContext(ctx).Where("provider_event_id = ?", providerEventId).First(&m).Error; err != nil {
		return 0, err
	}
	return m.Attempts, nil
}

func (r *WebhookEventRepositoryImpl) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ?", cutoff).
		Delete(&model.WebhookEvent{})
	return res.RowsAffected, res.Error
}
