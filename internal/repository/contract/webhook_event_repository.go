package contract

import (
	"context"
	"time"

	"scanguard-be/internal/entity"
)

type WebhookEventRepository interface {
	// InsertPending records first sight of an event id. Returns false when a
	// row for this id already exists (duplicate delivery).
	InsertPending(ctx context.Context, entry *entity.WebhookLedgerEntry) (bool, error)
	FindByEventId(ctx context.Context, providerEventId string) (*entity.WebhookLedgerEntry, error)
	MarkProcessed(ctx context.Context, providerEventId string, outcome entity.Outcome) error
	// IncrementAttempts bumps the redelivery counter on a pending row and
	// returns the new value for escalation checks.
	IncrementAttempts(ctx context.Context, providerEventId string) (int, error)
	// PurgeProcessedBefore enforces the bounded retention window.
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
