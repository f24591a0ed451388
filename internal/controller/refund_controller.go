package controller

import (
	"encoding/json"
	"errors"

	"pet-aftercare-be/internal/dto"
	"pet-aftercare-be/internal/entity"
	"pet-aftercare-be/internal/pkg/serverutils"
	"pet-aftercare-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRefundController interface {
	RegisterRoutes(r fiber.Router)
	RequestRefund(ctx *fiber.Ctx) error
	CheckEligibility(ctx *fiber.Ctx) error
	ListRefunds(ctx *fiber.Ctx) error
	DenyRefund(ctx *fiber.Ctx) error
	CompleteRefund(ctx *fiber.Ctx) error
	RetryFailedRefunds(ctx *fiber.Ctx) error
}

type refundController struct {
	service        service.IRefundService
	queuePublisher service.IQueuePublisher
}

func NewRefundController(svc service.IRefundService, queuePublisher service.IQueuePublisher) IRefundController {
	return &refundController{service: svc, queuePublisher: queuePublisher}
}

func (c *refundController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/refunds")
	h.Use(serverutils.JwtMiddleware)

	h.Post("/", c.RequestRefund)
	h.Get("/bookings/:booking_id/eligibility", c.CheckEligibility)

	// Staff routes
	staff := serverutils.RequireRole("staff", "admin")
	h.Get("/", staff, c.ListRefunds)
	h.Post("/:id/deny", staff, c.DenyRefund)
	h.Post("/:id/complete", staff, c.CompleteRefund)
	h.Post("/retry-failed", staff, c.RetryFailedRefunds)
}

func (c *refundController) RequestRefund(ctx *fiber.Ctx) error {
	var req dto.RefundRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	initiatedBy, initiatorType := callerIdentity(ctx)

	res, err := c.service.ProcessRefund(ctx.UserContext(), &req, initiatedBy, initiatorType)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}
	if !res.Success {
		// Business rejection, not a transport error.
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(serverutils.SuccessResponse("Refund not processed", res))
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Refund accepted", res))
}

func (c *refundController) CheckEligibility(ctx *fiber.Ctx) error {
	bookingId, err := uuid.Parse(ctx.Params("booking_id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid booking_id format"))
	}

	res, err := c.service.CheckEligibility(ctx.UserContext(), bookingId)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Refund eligibility", res))
}

func (c *refundController) ListRefunds(ctx *fiber.Ctx) error {
	status := ctx.Query("status")
	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.service.ListRefunds(ctx.UserContext(), status, limit, offset)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Refunds", res))
}

func (c *refundController) DenyRefund(ctx *fiber.Ctx) error {
	refundId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid refund id format"))
	}

	var req dto.DenyRefundRequest
	if err := ctx.BodyParser(&req); err != nil && len(ctx.Body()) > 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}

	if err := c.service.DenyRefund(ctx.UserContext(), refundId, req.Notes); err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Refund denied", nil))
}

func (c *refundController) CompleteRefund(ctx *fiber.Ctx) error {
	refundId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid refund id format"))
	}

	if err := c.service.CompleteRefund(ctx.UserContext(), refundId); err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Refund completed", nil))
}

// RetryFailedRefunds queues a retry sweep instead of running it inline so
// the HTTP request returns immediately.
func (c *refundController) RetryFailedRefunds(ctx *fiber.Ctx) error {
	payload, _ := json.Marshal(service.RetryRunMessage{Trigger: "manual"})
	if err := c.queuePublisher.Publish(ctx.UserContext(), payload); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse[any]("Retry run queued", nil))
}

func (c *refundController) mapServiceError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrRefundNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidReason):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	case errors.Is(err, service.ErrInvalidTransition):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}

// callerIdentity resolves who is making the request from the JWT claims the
// middleware stored.
func callerIdentity(ctx *fiber.Ctx) (uuid.UUID, entity.InitiatorType) {
	var id uuid.UUID
	if userIdStr, ok := ctx.Locals("user_id").(string); ok {
		id, _ = uuid.Parse(userIdStr)
	}

	role, _ := ctx.Locals("role").(string)
	switch role {
	case "admin":
		return id, entity.InitiatorAdmin
	case "staff":
		return id, entity.InitiatorStaff
	default:
		return id, entity.InitiatorCustomer
	}
}
