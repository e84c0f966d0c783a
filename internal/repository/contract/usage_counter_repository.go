package contract

import (
	"context"
	"time"

	"scanguard-be/internal/entity"

	"github.com/google/uuid"
)

type UsageCounterRepository interface {
	// CreateIfAbsent inserts a zero counter for (account, metric, periodStart)
	// unless one already exists (ON CONFLICT DO NOTHING). Safe under races.
	CreateIfAbsent(ctx context.Context, counter *entity.UsageCounter) error
	Find(ctx context.Context, accountId uuid.UUID, metric entity.Metric, periodStart time.Time) (*entity.UsageCounter, error)
	// ConsumeWithinLimit runs the read-check-increment sequence as one
	// conditional UPDATE: used += amount only when used + amount <= limit.
	// Returns false when the update did not apply (quota exhausted).
	ConsumeWithinLimit(ctx context.Context, id uuid.UUID, amount, limit int64) (bool, error)
	// Consume increments unconditionally (unlimited plans).
	Consume(ctx context.Context, id uuid.UUID, amount int64) error
	// Release compensates a counted action that later failed downstream.
	// Floors at zero.
	Release(ctx context.Context, id uuid.UUID, amount int64) error
}
