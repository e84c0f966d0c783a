package entity

import (
	"time"

	"github.com/google/uuid"
)

// UsageCounter is one period's consumption for one (account, metric) pair.
// Rows are created lazily on first consumption and never mutated once their
// period has closed; a new period gets a fresh row.
type UsageCounter struct {
	Id          uuid.UUID
	AccountId   uuid.UUID
	Metric      Metric
	PeriodStart time.Time
	PeriodEnd   time.Time
	Used        int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Decision is the outcome of a quota check. A denied consume is business
// logic, not an error: callers branch on Allowed, they never catch anything.
type Decision struct {
	Allowed bool
	Used    int64
	// Limit is the plan limit the decision was made against, nil = unlimited.
	Limit *int64
}

// Remaining returns how much quota is left, or -1 for unlimited.
func (d Decision) Remaining() int64 {
	if d.Limit == nil {
		return -1
	}
	if *d.Limit <= d.Used {
		return 0
	}
	return *d.Limit - d.Used
}
