package implementation

import (
	"context"
	"errors"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/internal/mapper"
	"scanguard-be/internal/model"
	"scanguard-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageCounterRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageMapper
}

func NewUsageCounterRepository(db *gorm.DB) contract.UsageCounterRepository {
	return &UsageCounterRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageMapper(),
	}
}

func (r *UsageCounterRepositoryImpl) CreateIfAbsent(ctx context.Context, counter *entity.UsageCounter) error {
	m := r.mapper.ToModel(counter)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "metric"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(m).Error
}

func (r *UsageCounterRepositoryImpl) Find(ctx context.Context, accountId uuid.UUID, metric entity.Metric, periodStart time.Time) (*entity.UsageCounter, error) {
	var m model.UsageCounter
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND metric = ? AND period_start = ?", accountId, string(metric), periodStart).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// ConsumeWithinLimit is the whole point of this table: the limit check and
// the increment happen in ONE statement, so two concurrent consumers can
// never both pass a stale check.
func (r *UsageCounterRepositoryImpl) ConsumeWithinLimit(ctx context.Context, id uuid.UUID, amount, limit int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.UsageCounter{}).
		Where("id = ? AND used + ? <= ?", id, amount, limit).
		Update("used", gorm.Expr("used + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *UsageCounterRepositoryImpl) Consume(ctx context.Context, id uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).Model(&model.UsageCounter{}).
		Where("id = ?", id).
		Update("used", gorm.Expr("used + ?", amount)).Error
}

func (r *UsageCounterRepositoryImpl) Release(ctx context.Context, id uuid.UUID, amount int64) error {
	return r.db.WithContext(ctx).Model(&model.UsageCounter{}).
		Where("id = ?", id).
		Update("used", gorm.Expr("GREATEST(used - ?, 0)", amount)).Error
}
