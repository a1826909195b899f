package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"greenbasket/internal/models"
	"greenbasket/pkg/razorpay"

	"github.com/google/uuid"
)

// Order service failure taxonomy. Validation failures never reach the
// gateway; gateway failures mean the remote order-creation call itself was
// rejected.
var (
	ErrAmountRequired       = errors.New("amount is required")
	ErrAmountOutOfRange     = errors.New("amount is outside the accepted range")
	ErrGatewayNotConfigured = errors.New("payment gateway key secret not configured")
	ErrGateway              = errors.New("gateway order creation failed")
)

// GatewayOrderClient is the slice of the Razorpay client the order service
// needs. *razorpay.Client satisfies it.
type GatewayOrderClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error)
	KeyID() string
}

// OrderRequest is a checkout request as received from the client. Amount is
// in decimal rupees; Currency and Receipt are optional.
type OrderRequest struct {
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Currency string  `json:"currency" validate:"omitempty,len=3"`
	Receipt  string  `json:"receipt" validate:"omitempty,max=40"`
}

// OrderService turns a client-declared amount into a gateway-recognized
// order. The gateway's signing secret stays inside pkg/razorpay; only the
// public key id ever appears in the descriptor.
type OrderService struct {
	gateway         GatewayOrderClient
	configured      bool
	minAmount       float64
	maxAmount       float64
	defaultCurrency string
}

// NewOrderService creates a new OrderService. configured reports whether a
// gateway key secret is present; without one every request fails before any
// gateway call.
func NewOrderService(gateway GatewayOrderClient, configured bool, minAmount, maxAmount float64) *OrderService {
	return &OrderService{
		gateway:         gateway,
		configured:      configured,
		minAmount:       minAmount,
		maxAmount:       maxAmount,
		defaultCurrency: "INR",
	}
}

// CreatePaymentOrder validates the request, creates a gateway order for the
// amount converted to paise, and returns the minimal descriptor the payment
// widget needs. Each call produces a fresh descriptor; descriptors are never
// reused across attempts.
func (s *OrderService) CreatePaymentOrder(ctx context.Context, req OrderRequest) (*models.OrderDescriptor, error) {
	if req.Amount == 0 {
		return nil, ErrAmountRequired
	}
	if req.Amount < s.minAmount || req.Amount > s.maxAmount {
		return nil, fmt.Errorf("%w: %.2f not in [%.0f, %.0f]", ErrAmountOutOfRange, req.Amount, s.minAmount, s.maxAmount)
	}
	if !s.configured {
		return nil, ErrGatewayNotConfigured
	}

	currency := req.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}
	receipt := req.Receipt
	if receipt == "" {
		// Timestamp plus a random suffix so two checkouts in the same
		// millisecond cannot share a receipt.
		receipt = fmt.Sprintf("receipt_%d_%s", time.Now().UnixMilli(), uuid.New().String()[:8])
	}

	paise := int64(math.Round(req.Amount * 100))
	order, err := s.gateway.CreateOrder(ctx, paise, currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return &models.OrderDescriptor{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    s.gateway.KeyID(),
		Receipt:  receipt,
	}, nil
}
