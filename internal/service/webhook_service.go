package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"scanguard-be/internal/config"
	"scanguard-be/internal/dto"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/logger"
	"scanguard-be/internal/repository/unitofwork"

	"github.com/redis/go-redis/v9"
)

const signatureFailureKey = "billing:webhook:sigfail"

// ISubscriptionNotifier pushes a state change to the affected account's open
// connections. Implemented by the websocket hub; nil-safe at call sites so
// the ingestor works headless in tests.
type ISubscriptionNotifier interface {
	NotifyAccount(accountId string, payload interface{})
}

type IWebhookService interface {
	// Ingest verifies, records, and applies one provider delivery. The
	// returned outcome is safe to acknowledge with 200: the ledger row is
	// committed before any acknowledgment path.
	Ingest(ctx context.Context, rawBody []byte, signature string) (entity.Outcome, error)
}

type webhookService struct {
	uowFactory unitofwork.RepositoryFactory
	reconciler IReconcilerService
	alerts     IAlertService
	notifier   ISubscriptionNotifier
	redis      *redis.Client
	logger     logger.ILogger

	secret           string
	maxAttempts      int
	failureThreshold int
	failureWindow    time.Duration

	// publishChange fires after commit for applied snapshots; wired by the
	// container to the NATS publisher and kept injectable for tests.
	publishChange func(ctx context.Context, result *ApplyResult)
}

func NewWebhookService(
	uowFactory unitofwork.RepositoryFactory,
	reconciler IReconcilerService,
	alerts IAlertService,
	notifier ISubscriptionNotifier,
	redisClient *redis.Client,
	cfg *config.Config,
	log logger.ILogger,
	publishChange func(ctx context.Context, result *ApplyResult),
) IWebhookService {
	return &webhookService{
		uowFactory:       uowFactory,
		reconciler:       reconciler,
		alerts:           alerts,
		notifier:         notifier,
		redis:            redisClient,
		logger:           log,
		secret:           cfg.Billing.WebhookSecret,
		maxAttempts:      cfg.Alerts.MaxEventAttempts,
		failureThreshold: cfg.Alerts.SignatureFailureThreshold,
		failureWindow:    cfg.Alerts.SignatureFailureWindow,
		publishChange:    publishChange,
	}
}

func (s *webhookService) Ingest(ctx context.Context, rawBody []byte, signature string) (entity.Outcome, error) {
	if !s.verifySignature(rawBody, signature) {
		s.trackSignatureFailure(ctx)
		return "", &entity.AuthenticationError{Reason: "webhook signature mismatch"}
	}

	var req dto.ProviderWebhookRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		s.alerts.Raise(ctx, AlertMalformedPayload, "Unparseable webhook payload",
			fmt.Sprintf("json error after valid signature: %v", err))
		return "", &entity.ValidationError{Field: "body", Reason: "payload is not valid json"}
	}

	event, err := req.ToEvent()
	if err != nil {
		// Signed but malformed means the provider contract drifted; that is
		// operator territory, not silent-drop territory.
		s.alerts.Raise(ctx, AlertMalformedPayload, "Malformed webhook payload",
			fmt.Sprintf("event %s rejected: %v", req.Id, err))
		return "", err
	}

	unlock := s.reconciler.LockAccount(event.Subscription.AccountId)
	defer unlock()

	// Ledger insert commits on its own before any application work, so a
	// crash mid-apply leaves a pending row the provider's retry will finish.
	inserted, err := s.recordPending(ctx, event, rawBody)
	if err != nil {
		return "", err
	}

	if !inserted {
		outcome, done, err := s.handleDuplicate(ctx, event)
		if err != nil || done {
			return outcome, err
		}
		// Pending row from a failed earlier attempt: fall through and retry.
	}

	return s.applyAndMark(ctx, event)
}

func (s *webhookService) recordPending(ctx context.Context, event *entity.ProviderEvent, rawBody []byte) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, &entity.TransientStorageError{Op: "ledger begin", Err: err}
	}
	defer uow.Rollback()

	inserted, err := uow.WebhookEventRepository().InsertPending(ctx, &entity.WebhookLedgerEntry{
		ProviderEventId: event.ProviderEventId,
		Type:            event.Type,
		ReceivedAt:      time.Now(),
		Attempts:        1,
		Payload:         rawBody,
	})
	if err != nil {
		return false, &entity.TransientStorageError{Op: "ledger insert", Err: err}
	}
	if err := uow.Commit(); err != nil {
		return false, &entity.TransientStorageError{Op: "ledger commit", Err: err}
	}
	return inserted, nil
}

// handleDuplicate resolves a redelivered event id. Processed rows answer from
// the ledger without touching subscription state. Pending rows bump the
// attempt counter, escalate past the threshold, and signal the caller to
// retry the application.
func (s *webhookService) handleDuplicate(ctx context.Context, event *entity.ProviderEvent) (entity.Outcome, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.WebhookEventRepository()

	entry, err := repo.FindByEventId(ctx, event.ProviderEventId)
	if err != nil {
		return "", true, &entity.TransientStorageError{Op: "ledger lookup", Err: err}
	}
	if entry == nil {
		return "", true, &entity.TransientStorageError{Op: "ledger lookup", Err: fmt.Errorf("ledger row vanished for %s", event.ProviderEventId)}
	}

	if entry.Processed() {
		s.logger.Info("WEBHOOK", "Duplicate delivery acknowledged", map[string]interface{}{
			"event_id": event.ProviderEventId,
			"outcome":  string(entry.Outcome),
		})
		return entry.Outcome, true, nil
	}

	attempts, err := repo.IncrementAttempts(ctx, event.ProviderEventId)
	if err != nil {
		return "", true, &entity.TransientStorageError{Op: "ledger attempts", Err: err}
	}
	if attempts >= s.maxAttempts {
		s.alerts.Raise(ctx, AlertEventRetryExceeded, "Webhook event stuck pending",
			fmt.Sprintf("event %s has failed %d delivery attempts", event.ProviderEventId, attempts))
	}
	return "", false, nil
}

func (s *webhookService) applyAndMark(ctx context.Context, event *entity.ProviderEvent) (entity.Outcome, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return "", &entity.TransientStorageError{Op: "apply begin", Err: err}
	}
	defer uow.Rollback()

	result, err := s.reconciler.ApplyInTx(ctx, uow, event)
	if err != nil {
		return "", err
	}

	if err := uow.WebhookEventRepository().MarkProcessed(ctx, event.ProviderEventId, result.Outcome); err != nil {
		return "", &entity.TransientStorageError{Op: "ledger mark processed", Err: err}
	}

	if err := uow.Commit(); err != nil {
		return "", &entity.TransientStorageError{Op: "apply commit", Err: err}
	}

	if result.Changed {
		if s.publishChange != nil {
			s.publishChange(ctx, result)
		}
		if s.notifier != nil {
			s.notifier.NotifyAccount(result.AccountId.String(), map[string]interface{}{
				"type":       "subscription_changed",
				"old_status": string(result.OldStatus),
				"new_status": string(result.NewStatus),
			})
		}
	}

	return result.Outcome, nil
}

func (s *webhookService) verifySignature(rawBody []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(rawBody)
	return hmac.Equal(provided, mac.Sum(nil))
}

// trackSignatureFailure counts bad signatures in Redis so a flood across all
// instances trips one shared threshold.
func (s *webhookService) trackSignatureFailure(ctx context.Context) {
	s.logger.Warn("WEBHOOK", "Signature verification failed", nil)
	if s.redis == nil {
		return
	}

	count, err := s.redis.Incr(ctx, signatureFailureKey).Result()
	if err != nil {
		s.logger.Warn("WEBHOOK", "Signature failure counter unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	if count == 1 {
		s.redis.Expire(ctx, signatureFailureKey, s.failureWindow)
	}
	if int(count) == s.failureThreshold {
		s.alerts.Raise(ctx, AlertSignatureFlood, "Webhook signature failure flood",
			fmt.Sprintf("%d signature failures within %s", count, s.failureWindow))
	}
}
