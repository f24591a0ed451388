package controller

import (
	"errors"
	"fmt"

	"pet-aftercare-be/internal/dto"
	"pet-aftercare-be/internal/pkg/serverutils"
	"pet-aftercare-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	CreatePayment(ctx *fiber.Ctx) error
	ConfirmCashPayment(ctx *fiber.Ctx) error
	GetPaymentStatus(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
}

func NewPaymentController(service service.IPaymentService) IPaymentController {
	return &paymentController{service: service}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payments")
	h.Post("/gateway/notification", c.Webhook)

	// Protected routes
	h.Post("/", serverutils.JwtMiddleware, c.CreatePayment)
	h.Get("/bookings/:booking_id/status", serverutils.JwtMiddleware, c.GetPaymentStatus)

	// Staff acknowledges cash in hand.
	h.Post("/:transaction_id/confirm", serverutils.JwtMiddleware, serverutils.RequireRole("staff", "admin"), c.ConfirmCashPayment)
}

func (c *paymentController) ConfirmCashPayment(ctx *fiber.Ctx) error {
	transactionId, err := uuid.Parse(ctx.Params("transaction_id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid transaction_id format"))
	}

	res, err := c.service.ConfirmCashPayment(ctx.UserContext(), transactionId)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment confirmed", res))
}

func (c *paymentController) CreatePayment(ctx *fiber.Ctx) error {
	var req dto.CreatePaymentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreatePayment(ctx.UserContext(), &req)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Payment created", res))
}

func (c *paymentController) GetPaymentStatus(ctx *fiber.Ctx) error {
	bookingId, err := uuid.Parse(ctx.Params("booking_id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid booking_id format"))
	}

	res, err := c.service.GetPaymentStatus(ctx.UserContext(), bookingId)
	if err != nil {
		return c.mapServiceError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment status", res))
}

// Webhook receives gateway notifications. The raw body goes straight to the
// service because the signature covers it and the audit log stores it
// verbatim. Responses follow the gateway's retry contract: 2xx means
// consumed, 5xx means deliver again later.
func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	body := make([]byte, len(ctx.Body()))
	copy(body, ctx.Body())

	err := c.service.HandleNotification(ctx.UserContext(), body)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			return ctx.SendStatus(fiber.StatusUnauthorized)
		}
		fmt.Printf("[WEBHOOK ERROR] Notification handling failed: %v\n", err)
		// 500 so the gateway redelivers.
		return ctx.SendStatus(fiber.StatusInternalServerError)
	}
	return ctx.SendStatus(fiber.StatusOK)
}

func (c *paymentController) mapServiceError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrPaymentNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrAmountOutOfRange),
		errors.Is(err, service.ErrUnsupportedMethod):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	case errors.Is(err, service.ErrPaymentInProgress),
		errors.Is(err, service.ErrInvalidTransition):
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(409, err.Error()))
	default:
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
}
