package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"scanguard-be/internal/entity"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// MidtransProvider backs checkout with Midtrans Snap and the portal/snapshot
// surface with the gateway's REST API.
type MidtransProvider struct {
	snapClient snap.Client
	httpClient *http.Client
	baseURL    string
	serverKey  string
	clientURL  string
}

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	// PortalBaseURL is the gateway REST base for portal sessions and
	// subscription snapshots.
	PortalBaseURL string
	// ClientURL receives the post-payment redirect.
	ClientURL string
	// Timeout bounds every outbound call.
	Timeout time.Duration
}

func NewMidtransProvider(cfg MidtransConfig) *MidtransProvider {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	var sClient snap.Client
	sClient.New(cfg.ServerKey, env)

	return &MidtransProvider{
		snapClient: sClient,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.PortalBaseURL,
		serverKey:  cfg.ServerKey,
		clientURL:  cfg.ClientURL,
	}
}

func (p *MidtransProvider) CreateCheckoutSession(ctx context.Context, accountId uuid.UUID, plan *entity.Plan) (*CheckoutSession, error) {
	// Order id ties the gateway transaction back to (account, plan); the
	// authoritative state change still only lands via the webhook.
	orderId := fmt.Sprintf("%s:%s:%d", accountId, plan.Id, time.Now().Unix())

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderId,
			GrossAmt: int64(plan.PriceMonthly * 100),
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		Callbacks: &snap.Callbacks{
			Finish: p.clientURL + "/app/billing?checkout=finished",
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    plan.Id.String(),
				Price: int64(plan.PriceMonthly * 100),
				Qty:   1,
				Name:  plan.DisplayName,
			},
		},
		EnabledPayments: snap.AllSnapPaymentType,
	}

	snapResp, midErr := p.snapClient.CreateTransaction(snapReq)
	if midErr != nil {
		return nil, fmt.Errorf("checkout session: %v", midErr.GetMessage())
	}

	return &CheckoutSession{URL: snapResp.RedirectURL}, nil
}

func (p *MidtransProvider) CreatePortalSession(ctx context.Context, accountId uuid.UUID, returnURL string) (*PortalSession, error) {
	endpoint := fmt.Sprintf("%s/v1/portal_sessions", p.baseURL)
	form := url.Values{
		"account_ref": {accountId.String()},
		"return_url":  {returnURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.serverKey, "")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("portal session: gateway returned %d", resp.StatusCode)
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("portal session: decode: %w", err)
	}

	return &PortalSession{URL: out.URL}, nil
}

func (p *MidtransProvider) FetchSubscription(ctx context.Context, providerSubscriptionId string) (*entity.ProviderEvent, error) {
	endpoint := fmt.Sprintf("%s/v1/subscriptions/%s", p.baseURL, providerSubscriptionId)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(p.serverKey, "")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch subscription: gateway returned %d", resp.StatusCode)
	}

	var out struct {
		Id                 string    `json:"id"`
		AccountRef         string    `json:"account_ref"`
		PlanRef            string    `json:"plan_ref"`
		Status             string    `json:"status"`
		CurrentPeriodStart time.Time `json:"current_period_start"`
		CurrentPeriodEnd   time.Time `json:"current_period_end"`
		CancelAtPeriodEnd  bool      `json:"cancel_at_period_end"`
		Revision           int64     `json:"revision"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fetch subscription: decode: %w", err)
	}

	accountId, err := uuid.Parse(out.AccountRef)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription: bad account ref %q", out.AccountRef)
	}
	planId, err := uuid.Parse(out.PlanRef)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription: bad plan ref %q", out.PlanRef)
	}

	// Shaped like a webhook event so the reconciler applies resync snapshots
	// through the exact same path, revision guard included.
	return &entity.ProviderEvent{
		ProviderEventId: fmt.Sprintf("resync:%s:%d", providerSubscriptionId, out.Revision),
		Type:            entity.EventSubscriptionUpdated,
		OccurredAt:      time.Now(),
		Revision:        out.Revision,
		Subscription: entity.SubscriptionSnapshot{
			ProviderSubscriptionId: out.Id,
			AccountId:              accountId,
			PlanId:                 planId,
			Status:                 entity.SubscriptionStatus(out.Status),
			CurrentPeriodStart:     out.CurrentPeriodStart,
			CurrentPeriodEnd:       out.CurrentPeriodEnd,
			CancelAtPeriodEnd:      out.CancelAtPeriodEnd,
		},
	}, nil
}
