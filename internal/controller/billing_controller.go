package controller

import (
	"errors"

	"scanguard-be/internal/dto"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/serverutils"
	"scanguard-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SignatureHeader carries the provider's HMAC over the raw request body.
const SignatureHeader = "X-Billing-Signature"

type IBillingController interface {
	RegisterRoutes(r fiber.Router)
	Webhook(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
	Portal(ctx *fiber.Ctx) error
	GetSubscription(ctx *fiber.Ctx) error
	GetUsage(ctx *fiber.Ctx) error
}

type billingController struct {
	webhookService     service.IWebhookService
	billingService     service.IBillingService
	entitlementService service.IEntitlementService
}

func NewBillingController(
	webhookService service.IWebhookService,
	billingService service.IBillingService,
	entitlementService service.IEntitlementService,
) IBillingController {
	return &billingController{
		webhookService:     webhookService,
		billingService:     billingService,
		entitlementService: entitlementService,
	}
}

func (c *billingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/billing")
	h.Post("/webhook", c.Webhook)

	h.Post("/checkout", serverutils.JwtMiddleware, c.Checkout)
	h.Post("/portal", serverutils.JwtMiddleware, c.Portal)
	h.Get("/subscription", serverutils.JwtMiddleware, c.GetSubscription)
	h.Get("/usage", serverutils.JwtMiddleware, c.GetUsage)
}

// Webhook acknowledges with 200 only after the ledger row is durably
// recorded; any 5xx tells the provider to redeliver.
func (c *billingController) Webhook(ctx *fiber.Ctx) error {
	outcome, err := c.webhookService.Ingest(ctx.Context(), ctx.Body(), ctx.Get(SignatureHeader))
	if err != nil {
		var authErr *entity.AuthenticationError
		var valErr *entity.ValidationError
		switch {
		case errors.As(err, &authErr):
			return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "signature verification failed"))
		case errors.As(err, &valErr):
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, valErr.Error()))
		default:
			// Storage fault mid-processing. The pending ledger row survives
			// and redelivery completes it.
			return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "processing failed, retry"))
		}
	}

	return ctx.JSON(serverutils.SuccessResponse("Event acknowledged", fiber.Map{"outcome": string(outcome)}))
}

func (c *billingController) Checkout(ctx *fiber.Ctx) error {
	var req dto.CheckoutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.billingService.CreateCheckout(ctx.Context(), accountId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout session created", res))
}

func (c *billingController) Portal(ctx *fiber.Ctx) error {
	var req dto.PortalRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.billingService.CreatePortal(ctx.Context(), accountId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Portal session created", res))
}

func (c *billingController) GetSubscription(ctx *fiber.Ctx) error {
	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.entitlementService.GetSubscription(ctx.Context(), accountId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription state", res))
}

func (c *billingController) GetUsage(ctx *fiber.Ctx) error {
	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	res, err := c.entitlementService.GetUsage(ctx.Context(), accountId)
	if err != nil {
		return err
	}

	if metric := ctx.Query("metric"); metric != "" {
		filtered := make([]dto.UsageResponse, 0, 1)
		for _, u := range res {
			if u.Metric == metric {
				filtered = append(filtered, u)
			}
		}
		res = filtered
	}
	return ctx.JSON(serverutils.SuccessResponse("Current usage", res))
}

func accountIdFromLocals(ctx *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := ctx.Locals("account_id").(string)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "missing account identity")
	}
	accountId, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "invalid account identity")
	}
	return accountId, nil
}
