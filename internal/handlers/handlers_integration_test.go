package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"greenbasket/internal/handlers"
	"greenbasket/internal/middleware"
	"greenbasket/internal/models"
	"greenbasket/internal/payment"
	"greenbasket/internal/repositories"
	"greenbasket/internal/services"
	"greenbasket/pkg/razorpay"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter atomic.Int64

// fakeGatewayServer mimics the Razorpay orders endpoint, minting a fresh
// order id per call.
func fakeGatewayServer() *httptest.Server {
	var orderCounter atomic.Int64
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":       fmt.Sprintf("order_test_%d", orderCounter.Add(1)),
			"amount":   req.Amount,
			"currency": req.Currency,
			"receipt":  req.Receipt,
			"status":   "created",
		})
	}))
}

// setupApp builds a Fiber app over in-memory SQLite with the full route
// surface and a fake payment gateway.
func setupApp(t *testing.T, gatewayURL string) (*fiber.App, *razorpay.Client) {
	t.Helper()

	viper.SetDefault("JWT_SECRET", "test_jwt_secret")
	viper.AutomaticEnv()
	jwtSecret := viper.GetString("JWT_SECRET")

	// A distinct database per test so state never leaks between them.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.BlogPost{}, &models.CartRecord{}); err != nil {
		t.Fatalf("failed to auto-migrate database: %v", err)
	}

	gatewayClient := razorpay.NewClient(razorpay.Config{
		KeyID:     "rzp_test_key",
		KeySecret: "test_secret",
		BaseURL:   gatewayURL,
	})
	callbackGateway := payment.NewCallbackGateway()

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	blogRepo := repositories.NewGORMBlogRepository(db)
	cartRepo := repositories.NewGORMCartRecordRepository(db)

	productService := services.NewProductService(productRepo)
	blogService := services.NewBlogService(blogRepo)
	authService := services.NewAuthService(userRepo, jwtSecret)
	cartManager := services.NewCartManager(cartRepo)
	orderService := services.NewOrderService(gatewayClient, true, 1, 100000)
	checkoutService := services.NewCheckoutService(orderService, callbackGateway, gatewayClient, services.LogNotifier{}, nil, time.Minute)

	productHandler := handlers.NewProductHandler(productService)
	blogHandler := handlers.NewBlogHandler(blogService)
	authHandler := handlers.NewAuthHandler(authService)
	cartHandler := handlers.NewCartHandler(cartManager, productService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, cartManager, authService, callbackGateway)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	authHandler.RegisterRoutes(apiV1)
	productHandler.RegisterPublicRoutes(apiV1)
	blogHandler.RegisterPublicRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterProtectedRoutes(protected)
	blogHandler.RegisterProtectedRoutes(protected)
	cartHandler.RegisterRoutes(protected)
	checkoutHandler.RegisterRoutes(protected)

	return app, gatewayClient
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func jsonRequest(method, target, token string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// registerAndLogin creates a user and returns their bearer token.
func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var loginResp map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&loginResp))
	resp.Body.Close()
	assert.NotEmpty(t, loginResp["token"])
	return loginResp["token"]
}

// createProduct seeds a catalog product and returns its ID.
func createProduct(t *testing.T, app *fiber.App, token string, name string, price int) string {
	t.Helper()

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/products", token, map[string]interface{}{
		"name":        name,
		"description": "Test product",
		"price":       price,
		"category":    "kitchen",
		"stock":       25,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	assert.NotEmpty(t, created.ID)
	return created.ID
}

func getCart(t *testing.T, app *fiber.App, token string) models.CartSnapshot {
	t.Helper()

	resp, err := app.Test(jsonRequest(http.MethodGet, "/api/v1/cart", token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var snap models.CartSnapshot
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	resp.Body.Close()
	return snap
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, _ := setupApp(t, gateway.URL)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodPost, "/api/v1/products"},
		{http.MethodPost, "/api/v1/blog-admin"},
	} {
		resp, err := app.Test(httptest.NewRequest(route.method, route.path, nil), -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", route.method, route.path)
		resp.Body.Close()
	}
}

func TestCartEndpoints(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, _ := setupApp(t, gateway.URL)
	token := registerAndLogin(t, app, "cartuser")
	productID := createProduct(t, app, token, "Bamboo Toothbrush", 149)

	// Add the same product twice: one entry, quantity 2.
	for i := 0; i < 2; i++ {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token, map[string]string{
			"product_id": productID,
		}), -1)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	snap := getCart(t, app, token)
	assert.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.TotalItems)
	assert.Equal(t, 298, snap.TotalPrice)

	// Unknown products are rejected.
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token, map[string]string{
		"product_id": "does-not-exist",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Set an absolute quantity.
	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/cart/items/"+productID, token, map[string]int{
		"quantity": 5,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 5*149, getCart(t, app, token).TotalPrice)

	// Quantity zero removes the line.
	resp, err = app.Test(jsonRequest(http.MethodPut, "/api/v1/cart/items/"+productID, token, map[string]int{
		"quantity": 0,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Empty(t, getCart(t, app, token).Items)
}

func TestCheckoutFlowSuccess(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, gatewayClient := setupApp(t, gateway.URL)
	token := registerAndLogin(t, app, "buyer")
	productID := createProduct(t, app, token, "Jute Tote Bag", 350)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token, map[string]string{
		"product_id": productID,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Begin checkout: descriptor carries the cart total in paise and the
	// public key id, never the secret.
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout", token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var descriptor models.OrderDescriptor
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&descriptor))
	resp.Body.Close()
	assert.Equal(t, int64(35000), descriptor.Amount)
	assert.Equal(t, "INR", descriptor.Currency)
	assert.Equal(t, "rzp_test_key", descriptor.KeyID)
	assert.NotEmpty(t, descriptor.OrderID)

	// A second checkout while this one awaits payment is rejected.
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout", token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// The widget's success callback with a genuine signature.
	signature := gatewayClient.SignPayment(descriptor.OrderID, "pay_test_1")
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout/callback", token, map[string]string{
		"razorpay_payment_id": "pay_test_1",
		"razorpay_order_id":   descriptor.OrderID,
		"razorpay_signature":  signature,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Reconciliation is asynchronous; the cart clears once it lands.
	assert.Eventually(t, func() bool {
		return len(getCart(t, app, token).Items) == 0
	}, 2*time.Second, 20*time.Millisecond, "cart must be cleared after verified success")
}

func TestCheckoutFlowFailureKeepsCart(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, _ := setupApp(t, gateway.URL)
	token := registerAndLogin(t, app, "unluckybuyer")
	productID := createProduct(t, app, token, "Steel Straw Set", 199)

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/cart/items", token, map[string]string{
		"product_id": productID,
	}), -1)
	assert.NoError(t, err)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout", token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var descriptor models.OrderDescriptor
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&descriptor))
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout/failed", token, map[string]string{
		"razorpay_order_id": descriptor.OrderID,
		"reason":            "card declined",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The cart survives the failed attempt, and the gate reopens for a
	// fresh one with a new descriptor.
	assert.Eventually(t, func() bool {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout", token, nil), -1)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var retry models.OrderDescriptor
		if err := json.NewDecoder(resp.Body).Decode(&retry); err != nil {
			return false
		}
		return retry.OrderID != descriptor.OrderID
	}, 2*time.Second, 20*time.Millisecond)

	assert.Len(t, getCart(t, app, token).Items, 1)
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, _ := setupApp(t, gateway.URL)
	token := registerAndLogin(t, app, "emptycart")

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/checkout", token, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Contains(t, body["error"], "empty")
}

func TestBlogEndpoints(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, _ := setupApp(t, gateway.URL)
	token := registerAndLogin(t, app, "blogger")

	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/blog-admin", token, map[string]interface{}{
		"title":     "Why Bamboo Beats Plastic",
		"content":   "Long-form content here.",
		"excerpt":   "A short teaser.",
		"published": true,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var post models.BlogPost
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&post))
	resp.Body.Close()
	assert.Equal(t, "why-bamboo-beats-plastic", post.Slug)

	// Public read by derived slug.
	resp, err = app.Test(jsonRequest(http.MethodGet, "/api/v1/blog/"+post.Slug, "", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Drafts stay off the public surface.
	resp, err = app.Test(jsonRequest(http.MethodPost, "/api/v1/blog-admin", token, map[string]interface{}{
		"title":   "Unfinished Draft",
		"content": "WIP",
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodGet, "/api/v1/blog/unfinished-draft", "", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestProductCategoryFilter(t *testing.T) {
	gateway := fakeGatewayServer()
	defer gateway.Close()
	app, _ := setupApp(t, gateway.URL)
	token := registerAndLogin(t, app, "catalogadmin")

	createProduct(t, app, token, "Bamboo Cutlery", 299)
	resp, err := app.Test(jsonRequest(http.MethodPost, "/api/v1/products", token, map[string]interface{}{
		"name":     "Organic Cotton Shirt",
		"price":    899,
		"category": "clothing",
		"stock":    5,
	}), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(jsonRequest(http.MethodGet, "/api/v1/products?category=clothing", "", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	resp.Body.Close()
	assert.Len(t, products, 1)
	assert.Equal(t, "Organic Cotton Shirt", products[0].Name)
}
