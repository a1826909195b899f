// Package payment bridges the gateway's callback-driven checkout widget to
// the checkout flow. The widget resolves through exactly two channels, a
// success handler and a payment.failed handler; this package normalizes that
// pair into a single PaymentOutcome delivered on a channel, so the
// orchestrator can treat the attempt as one asynchronous task.
package payment

import (
	"fmt"
	"sync"

	"greenbasket/internal/models"
)

// Gateway opens a payment collection surface for an order descriptor. The
// returned channel yields exactly one outcome per attempt. The widget itself
// never signals abandonment, so the caller owns any deadline.
type Gateway interface {
	Open(descriptor models.OrderDescriptor, prefill models.Prefill) (<-chan models.PaymentOutcome, error)
}

// CallbackGateway tracks open attempts by gateway order id and resolves them
// when the widget's callbacks arrive over HTTP. Each attempt resolves at
// most once; later callbacks for the same order are dropped.
type CallbackGateway struct {
	pending map[string]chan models.PaymentOutcome
	mu      sync.Mutex
}

// NewCallbackGateway creates an empty gateway registry.
func NewCallbackGateway() *CallbackGateway {
	return &CallbackGateway{
		pending: make(map[string]chan models.PaymentOutcome),
	}
}

// Open registers an attempt for the descriptor's order id and hands back the
// outcome channel. A second Open for an order id still pending is an error;
// descriptors are never reused across attempts.
func (g *CallbackGateway) Open(descriptor models.OrderDescriptor, prefill models.Prefill) (<-chan models.PaymentOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if descriptor.OrderID == "" {
		return nil, fmt.Errorf("order descriptor has no order ID")
	}
	if _, ok := g.pending[descriptor.OrderID]; ok {
		return nil, fmt.Errorf("payment attempt for order %s is already open", descriptor.OrderID)
	}

	// Buffered so a resolve never blocks on a consumer that already gave up.
	ch := make(chan models.PaymentOutcome, 1)
	g.pending[descriptor.OrderID] = ch
	return ch, nil
}

// ResolveSuccess delivers the widget's success callback for an order.
func (g *CallbackGateway) ResolveSuccess(orderID, paymentID, signature string) error {
	return g.resolve(orderID, models.PaymentOutcome{
		Status:    models.PaymentSucceeded,
		PaymentID: paymentID,
		OrderID:   orderID,
		Signature: signature,
	})
}

// ResolveFailure delivers the widget's payment.failed callback for an order.
func (g *CallbackGateway) ResolveFailure(orderID, reason string) error {
	return g.resolve(orderID, models.PaymentOutcome{
		Status:  models.PaymentFailed,
		OrderID: orderID,
		Reason:  reason,
	})
}

// Abandon resolves a still-pending attempt as cancelled. Used by the
// orchestrator when its payment deadline expires without either callback.
func (g *CallbackGateway) Abandon(orderID string) {
	g.resolve(orderID, models.PaymentOutcome{
		Status:  models.PaymentCancelled,
		OrderID: orderID,
	})
}

func (g *CallbackGateway) resolve(orderID string, outcome models.PaymentOutcome) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.pending[orderID]
	if !ok {
		return fmt.Errorf("no open payment attempt for order %s", orderID)
	}
	delete(g.pending, orderID)
	ch <- outcome
	close(ch)
	return nil
}
