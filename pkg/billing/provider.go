package billing

import (
	"context"

	"scanguard-be/internal/entity"

	"github.com/google/uuid"
)

// CheckoutSession is a provider-hosted payment page for a plan purchase.
type CheckoutSession struct {
	URL string
}

// PortalSession is a provider-hosted self-service billing page.
type PortalSession struct {
	URL string
}

// Provider is the outbound surface to the billing gateway. All calls are
// bounded by the configured timeout; failures surface as retryable errors to
// the caller, never retried silently here.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, accountId uuid.UUID, plan *entity.Plan) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, accountId uuid.UUID, returnURL string) (*PortalSession, error)
	// FetchSubscription pulls the provider's current snapshot for the resync
	// sweep. The returned revision follows the same monotonic contract as
	// webhook events.
	FetchSubscription(ctx context.Context, providerSubscriptionId string) (*entity.ProviderEvent, error)
}
