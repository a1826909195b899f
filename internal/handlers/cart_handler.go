package handlers

import (
	"log"

	"greenbasket/internal/middleware"
	"greenbasket/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	carts    *services.CartManager
	products *services.ProductService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts *services.CartManager, products *services.ProductService) *CartHandler {
	return &CartHandler{
		carts:    carts,
		products: products,
	}
}

// RegisterRoutes registers the cart routes. All of them require auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:productId", h.HandleUpdateQuantity)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// store resolves the caller's cart store from the JWT identity.
func (h *CartHandler) store(c *fiber.Ctx) (*services.CartStore, error) {
	return h.carts.Store(middleware.UserID(c))
}

// HandleGetCart returns the cart snapshot with derived totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(store.Snapshot())
}

// AddItemRequest identifies the product to add.
type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

// HandleAddItem adds one unit of a catalog product to the cart, accumulating
// quantity when the product is already present.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil || req.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "product_id is required",
		})
	}

	product, err := h.products.GetProductByID(req.ProductID)
	if err != nil {
		log.Printf("Error adding product %s to cart: %v", req.ProductID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	store.AddItem(*product)
	return c.JSON(store.Snapshot())
}

// UpdateQuantityRequest carries the new absolute quantity for a cart line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// HandleUpdateQuantity sets an item's quantity; zero or less removes it.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "quantity is required",
		})
	}

	store.UpdateQuantity(c.Params("productId"), req.Quantity)
	return c.JSON(store.Snapshot())
}

// HandleRemoveItem removes a cart line entirely.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	store.RemoveItem(c.Params("productId"))
	return c.JSON(store.Snapshot())
}

// HandleClearCart empties the cart on explicit user request.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	store, err := h.store(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	store.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}
