package metering

import (
	"context"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Meter enforces per-period usage quotas. Every (account, metric, period)
// triple is an independent row guarded by a single conditional UPDATE, so
// unrelated accounts never contend and concurrent consumers of one counter
// cannot oversell.
type Meter struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
	now        func() time.Time
}

func NewMeter(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) *Meter {
	return &Meter{
		uowFactory: uowFactory,
		logger:     log,
		now:        time.Now,
	}
}

// TryConsume atomically spends quota against the given plan limit within the
// given billing period. A denial is a normal Decision, not an error. Storage
// faults fail closed: the action is denied rather than risking oversell.
func (m *Meter) TryConsume(ctx context.Context, accountId uuid.UUID, metric entity.Metric, amount int64, limit *int64, period entity.Period) (entity.Decision, error) {
	// If the wall clock has left the known window (renewal webhook not
	// landed yet), anchor onto the next window instead of mutating the
	// expired row.
	period = period.Advance(m.now())

	repo := m.uowFactory.NewUnitOfWork(ctx).UsageCounterRepository()

	counter, err := repo.Find(ctx, accountId, metric, period.Start)
	if err != nil {
		return m.failClosed(limit), &entity.TransientStorageError{Op: "usage lookup", Err: err}
	}
	if counter == nil {
		fresh := &entity.UsageCounter{
			Id:          uuid.New(),
			AccountId:   accountId,
			Metric:      metric,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
		}
		if err := repo.CreateIfAbsent(ctx, fresh); err != nil {
			return m.failClosed(limit), &entity.TransientStorageError{Op: "usage counter create", Err: err}
		}
		// Re-read: a concurrent caller may have won the insert race.
		counter, err = repo.Find(ctx, accountId, metric, period.Start)
		if err != nil || counter == nil {
			return m.failClosed(limit), &entity.TransientStorageError{Op: "usage counter reload", Err: err}
		}
	}

	allowed := true
	if limit == nil {
		if err := repo.Consume(ctx, counter.Id, amount); err != nil {
			return m.failClosed(limit), &entity.TransientStorageError{Op: "usage increment", Err: err}
		}
	} else {
		allowed, err = repo.ConsumeWithinLimit(ctx, counter.Id, amount, *limit)
		if err != nil {
			return m.failClosed(limit), &entity.TransientStorageError{Op: "usage consume", Err: err}
		}
	}

	// Re-read for an accurate Used in the decision; display only, the
	// enforcement already happened in the conditional update.
	counter, err = repo.Find(ctx, accountId, metric, period.Start)
	if err != nil || counter == nil {
		return m.failClosed(limit), &entity.TransientStorageError{Op: "usage readback", Err: err}
	}

	return entity.Decision{Allowed: allowed, Used: counter.Used, Limit: limit}, nil
}

// Release compensates a counted action that failed downstream (e.g. a scan
// that errored after being tallied). No-op when the counter doesn't exist.
func (m *Meter) Release(ctx context.Context, accountId uuid.UUID, metric entity.Metric, amount int64, period entity.Period) error {
	period = period.Advance(m.now())

	repo := m.uowFactory.NewUnitOfWork(ctx).UsageCounterRepository()
	counter, err := repo.Find(ctx, accountId, metric, period.Start)
	if err != nil {
		return &entity.TransientStorageError{Op: "usage release lookup", Err: err}
	}
	if counter == nil {
		return nil
	}
	if err := repo.Release(ctx, counter.Id, amount); err != nil {
		return &entity.TransientStorageError{Op: "usage release", Err: err}
	}
	return nil
}

// CurrentUsage reads the period's consumption for display. A missing counter
// means nothing consumed yet.
func (m *Meter) CurrentUsage(ctx context.Context, accountId uuid.UUID, metric entity.Metric, period entity.Period) (int64, error) {
	period = period.Advance(m.now())

	repo := m.uowFactory.NewUnitOfWork(ctx).UsageCounterRepository()
	counter, err := repo.Find(ctx, accountId, metric, period.Start)
	if err != nil {
		return 0, &entity.TransientStorageError{Op: "usage read", Err: err}
	}
	if counter == nil {
		return 0, nil
	}
	return counter.Used, nil
}

// Rollover pre-creates zero counters for the new period inside the caller's
// transaction. Old rows are left untouched as history.
func (m *Meter) Rollover(ctx context.Context, uow unitofwork.UnitOfWork, accountId uuid.UUID, period entity.Period) error {
	repo := uow.UsageCounterRepository()
	for _, metric := range entity.MeteredMetrics {
		fresh := &entity.UsageCounter{
			Id:          uuid.New(),
			AccountId:   accountId,
			Metric:      metric,
			PeriodStart: period.Start,
			PeriodEnd:   period.End,
		}
		if err := repo.CreateIfAbsent(ctx, fresh); err != nil {
			return &entity.TransientStorageError{Op: "usage rollover", Err: err}
		}
	}

	m.logger.Info("METER", "Usage period rolled over", map[string]interface{}{
		"account_id":   accountId,
		"period_start": period.Start,
		"period_end":   period.End,
	})
	return nil
}

func (m *Meter) failClosed(limit *int64) entity.Decision {
	return entity.Decision{Allowed: false, Limit: limit}
}
