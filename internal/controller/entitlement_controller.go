package controller

import (
	"scanguard-be/internal/dto"
	"scanguard-be/internal/entity"
	"scanguard-be/internal/pkg/serverutils"
	"scanguard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// IEntitlementController is the gate the product services call before doing
// gated work. Consume and release are separate calls on purpose: release is
// explicit compensation, never implied.
type IEntitlementController interface {
	RegisterRoutes(r fiber.Router)
	CheckFeature(ctx *fiber.Ctx) error
	ConsumeQuota(ctx *fiber.Ctx) error
	ReleaseQuota(ctx *fiber.Ctx) error
}

type entitlementController struct {
	entitlementService service.IEntitlementService
}

func NewEntitlementController(entitlementService service.IEntitlementService) IEntitlementController {
	return &entitlementController{entitlementService: entitlementService}
}

func (c *entitlementController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/entitlements", serverutils.JwtMiddleware)
	h.Get("/features/:feature", c.CheckFeature)
	h.Post("/quota/consume", c.ConsumeQuota)
	h.Post("/quota/release", c.ReleaseQuota)
}

func (c *entitlementController) CheckFeature(ctx *fiber.Ctx) error {
	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	enabled, err := c.entitlementService.CheckFeature(ctx.Context(), accountId, entity.Feature(ctx.Params("feature")))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Feature check", fiber.Map{"enabled": enabled}))
}

// ConsumeQuota returns 200 for denials too: a denial is a decision the
// caller branches on, not a transport failure.
func (c *entitlementController) ConsumeQuota(ctx *fiber.Ctx) error {
	var req dto.QuotaConsumeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	decision, err := c.entitlementService.CheckAndConsumeQuota(ctx.Context(), accountId, entity.Metric(req.Metric), req.Amount)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Quota decision", dto.QuotaDecisionResponse{
		Allowed:   decision.Allowed,
		Used:      decision.Used,
		Limit:     decision.Limit,
		Remaining: decision.Remaining(),
	}))
}

func (c *entitlementController) ReleaseQuota(ctx *fiber.Ctx) error {
	var req dto.QuotaConsumeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	accountId, err := accountIdFromLocals(ctx)
	if err != nil {
		return err
	}

	if err := c.entitlementService.ReleaseQuota(ctx.Context(), accountId, entity.Metric(req.Metric), req.Amount); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Quota released", nil))
}
