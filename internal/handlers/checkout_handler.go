package handlers

import (
	"errors"
	"log"

	"greenbasket/internal/middleware"
	"greenbasket/internal/payment"
	"greenbasket/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler exposes the checkout flow: one endpoint to begin an
// attempt and two callback endpoints the payment widget posts its result to.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	carts    *services.CartManager
	auth     *services.AuthService
	gateway  *payment.CallbackGateway
	validate *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService, carts *services.CartManager, auth *services.AuthService, gateway *payment.CallbackGateway) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		carts:    carts,
		auth:     auth,
		gateway:  gateway,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the checkout routes. All of them require auth.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Post("/", h.HandleCheckout)
	checkoutRoutes.Post("/callback", h.HandlePaymentCallback)
	checkoutRoutes.Post("/failed", h.HandlePaymentFailed)
}

// HandleCheckout begins a checkout attempt for the caller's cart and returns
// the order descriptor the payment widget needs. Guard failures map to 400
// (empty cart, bad amount, gateway rejection) or 409 (attempt in flight).
func (h *CheckoutHandler) HandleCheckout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	store, err := h.carts.Store(userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	descriptor, err := h.checkout.Begin(c.Context(), userID, store, h.auth.PrefillFor(userID))
	if err != nil {
		log.Printf("Checkout for user %s failed: %v", userID, err)
		status := fiber.StatusBadRequest
		if errors.Is(err, services.ErrCheckoutInFlight) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(descriptor)
}

// PaymentCallbackRequest is the widget's success callback payload.
type PaymentCallbackRequest struct {
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// HandlePaymentCallback receives the widget's success handler result and
// resolves the matching attempt. Signature verification happens in the
// orchestrator before the cart is touched.
func (h *CheckoutHandler) HandlePaymentCallback(c *fiber.Ctx) error {
	var req PaymentCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "razorpay_payment_id, razorpay_order_id and razorpay_signature are required",
		})
	}

	if err := h.gateway.ResolveSuccess(req.OrderID, req.PaymentID, req.Signature); err != nil {
		log.Printf("Payment callback for unknown order %s: %v", req.OrderID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"message": "Payment received"})
}

// PaymentFailedRequest is the widget's payment.failed event payload.
type PaymentFailedRequest struct {
	OrderID string `json:"razorpay_order_id" validate:"required"`
	Reason  string `json:"reason"`
}

// HandlePaymentFailed receives the widget's payment.failed event and
// resolves the matching attempt as failed. The cart stays untouched.
func (h *CheckoutHandler) HandlePaymentFailed(c *fiber.Ctx) error {
	var req PaymentFailedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "razorpay_order_id is required",
		})
	}

	reason := req.Reason
	if reason == "" {
		reason = "Payment failed"
	}
	if err := h.gateway.ResolveFailure(req.OrderID, reason); err != nil {
		log.Printf("Payment failure callback for unknown order %s: %v", req.OrderID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"message": "Payment failure recorded"})
}
