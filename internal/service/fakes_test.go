package service

import (
	"context"
	"sync"
	"time"

	"scanguard-be/internal/entity"
	"scanguard-be/internal/repository/contract"
	"scanguard-be/internal/repository/specification"
	"scanguard-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// In-memory repository fakes. They honor the same contracts as the GORM
// implementations so the services under test cannot tell the difference.

type usageKey struct {
	accountId   uuid.UUID
	metric      entity.Metric
	periodStart time.Time
}

type fakeStore struct {
	mu sync.Mutex

	plans         map[uuid.UUID]*entity.Plan
	subscriptions map[uuid.UUID]*entity.Subscription
	counters      map[usageKey]*entity.UsageCounter
	ledger        map[string]*entity.WebhookLedgerEntry

	commits   int
	rollbacks int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		plans:         make(map[uuid.UUID]*entity.Plan),
		subscriptions: make(map[uuid.UUID]*entity.Subscription),
		counters:      make(map[usageKey]*entity.UsageCounter),
		ledger:        make(map[string]*entity.WebhookLedgerEntry),
	}
}

type fakeFactory struct {
	store *fakeStore
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeUow struct {
	store *fakeStore
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.commits++
	return nil
}
func (u *fakeUow) Rollback() error {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.rollbacks++
	return nil
}

func (u *fakeUow) PlanRepository() contract.PlanRepository {
	return &fakePlanRepo{store: u.store}
}
func (u *fakeUow) SubscriptionRepository() contract.SubscriptionRepository {
	return &fakeSubscriptionRepo{store: u.store}
}
func (u *fakeUow) UsageCounterRepository() contract.UsageCounterRepository {
	return &fakeUsageRepo{store: u.store}
}
func (u *fakeUow) WebhookEventRepository() contract.WebhookEventRepository {
	return &fakeWebhookRepo{store: u.store}
}

type fakePlanRepo struct {
	store *fakeStore
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *entity.Plan) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *plan
	r.store.plans[plan.Id] = &copied
	return nil
}

func (r *fakePlanRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			if plan, found := r.store.plans[byId.ID]; found {
				copied := *plan
				return &copied, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *fakePlanRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Plan, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Plan
	for _, plan := range r.store.plans {
		if plan.IsActive {
			copied := *plan
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeSubscriptionRepo struct {
	store *fakeStore
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *sub
	r.store.subscriptions[sub.Id] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) Update(ctx context.Context, sub *entity.Subscription) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *sub
	r.store.subscriptions[sub.Id] = &copied
	return nil
}

func (r *fakeSubscriptionRepo) FindLiveByAccount(ctx context.Context, accountId uuid.UUID) (*entity.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, sub := range r.store.subscriptions {
		if sub.AccountId == accountId && sub.Status.IsLive() {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, spec := range specs {
		if byProvider, ok := spec.(specification.ByProviderSubscriptionID); ok {
			for _, sub := range r.store.subscriptions {
				if sub.ProviderSubscriptionId == byProvider.ProviderSubscriptionID {
					copied := *sub
					return &copied, nil
				}
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (r *fakeSubscriptionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Subscription
	for _, sub := range r.store.subscriptions {
		copied := *sub
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) FindAllLive(ctx context.Context) ([]*entity.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.Subscription
	for _, sub := range r.store.subscriptions {
		if sub.Status.IsLive() {
			copied := *sub
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeUsageRepo struct {
	store *fakeStore
}

func (r *fakeUsageRepo) CreateIfAbsent(ctx context.Context, counter *entity.UsageCounter) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := usageKey{counter.AccountId, counter.Metric, counter.PeriodStart}
	if _, exists := r.store.counters[key]; exists {
		return nil
	}
	copied := *counter
	r.store.counters[key] = &copied
	return nil
}

func (r *fakeUsageRepo) Find(ctx context.Context, accountId uuid.UUID, metric entity.Metric, periodStart time.Time) (*entity.UsageCounter, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if counter, found := r.store.counters[usageKey{accountId, metric, periodStart}]; found {
		copied := *counter
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeUsageRepo) ConsumeWithinLimit(ctx context.Context, id uuid.UUID, amount, limit int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, counter := range r.store.counters {
		if counter.Id == id {
			if counter.Used+amount > limit {
				return false, nil
			}
			counter.Used += amount
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUsageRepo) Consume(ctx context.Context, id uuid.UUID, amount int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, counter := range r.store.counters {
		if counter.Id == id {
			counter.Used += amount
			return nil
		}
	}
	return nil
}

func (r *fakeUsageRepo) Release(ctx context.Context, id uuid.UUID, amount int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, counter := range r.store.counters {
		if counter.Id == id {
			counter.Used -= amount
			if counter.Used < 0 {
				counter.Used = 0
			}
			return nil
		}
	}
	return nil
}

type fakeWebhookRepo struct {
	store *fakeStore
}

func (r *fakeWebhookRepo) InsertPending(ctx context.Context, entry *entity.WebhookLedgerEntry) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.ledger[entry.ProviderEventId]; exists {
		return false, nil
	}
	copied := *entry
	r.store.ledger[entry.ProviderEventId] = &copied
	return true, nil
}

func (r *fakeWebhookRepo) FindByEventId(ctx context.Context, providerEventId string) (*entity.WebhookLedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if entry, found := r.store.ledger[providerEventId]; found {
		copied := *entry
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeWebhookRepo) MarkProcessed(ctx context.Context, providerEventId string, outcome entity.Outcome) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if entry, found := r.store.ledger[providerEventId]; found {
		now := time.Now()
		entry.ProcessedAt = &now
		entry.Outcome = outcome
	}
	return nil
}

func (r *fakeWebhookRepo) IncrementAttempts(ctx context.Context, providerEventId string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if entry, found := r.store.ledger[providerEventId]; found {
		entry.Attempts++
		return entry.Attempts, nil
	}
	return 0, nil
}

func (r *fakeWebhookRepo) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var purged int64
	for id, entry := range r.store.ledger {
		if entry.ProcessedAt != nil && entry.ProcessedAt.Before(cutoff) {
			delete(r.store.ledger, id)
			purged++
		}
	}
	return purged, nil
}

type raisedAlert struct {
	kind    AlertKind
	subject string
	detail  string
}

type fakeAlertService struct {
	mu     sync.Mutex
	raised []raisedAlert
}

func (s *fakeAlertService) Raise(ctx context.Context, kind AlertKind, subject, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raised = append(s.raised, raisedAlert{kind, subject, detail})
}

func (s *fakeAlertService) byKind(kind AlertKind) []raisedAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []raisedAlert
	for _, a := range s.raised {
		if a.kind == kind {
			out = append(out, a)
		}
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	notified []string
}

func (n *fakeNotifier) NotifyAccount(accountId string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, accountId)
}

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }
