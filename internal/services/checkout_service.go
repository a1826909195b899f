package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"greenbasket/internal/models"
	"greenbasket/internal/payment"
)

// Checkout guard failures, reported before any network call is made.
var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCheckoutInFlight = errors.New("a checkout is already in progress")
	ErrBadSignature     = errors.New("payment signature verification failed")
)

// CheckoutState is the orchestrator's phase for one owner. Succeeded, Failed
// and Cancelled are terminal per attempt and collapse back to Idle as soon
// as the outcome has been reported, so only the non-terminal phases are ever
// observable.
type CheckoutState int

const (
	CheckoutIdle CheckoutState = iota
	CheckoutCreatingOrder
	CheckoutAwaitingPayment
)

func (s CheckoutState) String() string {
	switch s {
	case CheckoutIdle:
		return "idle"
	case CheckoutCreatingOrder:
		return "creating_order"
	case CheckoutAwaitingPayment:
		return "awaiting_payment"
	}
	return "unknown"
}

// SignatureVerifier checks a success callback against the gateway secret.
// *razorpay.Client satisfies it.
type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// Notifier surfaces checkout outcomes to the user.
type Notifier interface {
	Notify(userID, message string)
}

// LogNotifier is the default Notifier, writing outcomes to the process log.
type LogNotifier struct{}

// Notify logs the message for the user.
func (LogNotifier) Notify(userID, message string) {
	log.Printf("[notify user=%s] %s", userID, message)
}

// EventPublisher publishes payment lifecycle events. *rabbitmq.Client
// satisfies it; a nil publisher disables event publication.
type EventPublisher interface {
	PublishPaymentEvent(eventType string, payload map[string]interface{}) error
}

// attempt tracks one in-flight checkout for an owner.
type attempt struct {
	state   CheckoutState
	orderID string
}

// CheckoutService sequences cart → order creation → payment collection →
// cart, holding one attempt per owner at a time. The cart is cleared only
// after a verified gateway success; every other path leaves it untouched.
// No path is retried automatically; a failed attempt requires a fresh
// user-initiated checkout with a new descriptor.
type CheckoutService struct {
	orders    *OrderService
	gateway   payment.Gateway
	abandoner interface{ Abandon(orderID string) }
	verifier  SignatureVerifier
	notifier  Notifier
	publisher EventPublisher
	timeout   time.Duration

	attempts map[string]*attempt
	mu       sync.Mutex
}

// NewCheckoutService creates a new CheckoutService. gateway must be the same
// CallbackGateway the payment callback handlers resolve through; timeout
// bounds AwaitingPayment, after which an attempt with no callback resolves
// as cancelled.
func NewCheckoutService(orders *OrderService, gateway *payment.CallbackGateway, verifier SignatureVerifier, notifier Notifier, publisher EventPublisher, timeout time.Duration) *CheckoutService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &CheckoutService{
		orders:    orders,
		gateway:   gateway,
		abandoner: gateway,
		verifier:  verifier,
		notifier:  notifier,
		publisher: publisher,
		timeout:   timeout,
		attempts:  make(map[string]*attempt),
	}
}

// State reports the orchestrator's current phase for an owner.
func (s *CheckoutService) State(userID string) CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.attempts[userID]; ok {
		return a.state
	}
	return CheckoutIdle
}

// Begin starts a checkout attempt for the owner of the given cart. It guards
// against an empty cart and against a second attempt while one is in flight,
// creates the gateway order, opens the payment surface, and returns the
// descriptor for the widget. The outcome is reconciled asynchronously.
func (s *CheckoutService) Begin(ctx context.Context, userID string, store *CartStore, prefill models.Prefill) (*models.OrderDescriptor, error) {
	snapshot := store.Snapshot()

	s.mu.Lock()
	if _, ok := s.attempts[userID]; ok {
		s.mu.Unlock()
		return nil, ErrCheckoutInFlight
	}
	if len(snapshot.Items) == 0 {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}
	a := &attempt{state: CheckoutCreatingOrder}
	s.attempts[userID] = a
	s.mu.Unlock()

	descriptor, err := s.orders.CreatePaymentOrder(ctx, OrderRequest{
		Amount: float64(snapshot.TotalPrice),
	})
	if err != nil {
		s.finish(userID, fmt.Sprintf("Checkout failed: %v", err))
		return nil, err
	}

	outcomes, err := s.gateway.Open(*descriptor, prefill)
	if err != nil {
		s.finish(userID, fmt.Sprintf("Checkout failed: %v", err))
		return nil, err
	}

	s.mu.Lock()
	a.state = CheckoutAwaitingPayment
	a.orderID = descriptor.OrderID
	s.mu.Unlock()

	go s.await(userID, store, *descriptor, outcomes)
	return descriptor, nil
}

// await blocks on the payment outcome for one attempt, applying the
// AwaitingPayment deadline, and reconciles the terminal state.
func (s *CheckoutService) await(userID string, store *CartStore, descriptor models.OrderDescriptor, outcomes <-chan models.PaymentOutcome) {
	var outcome models.PaymentOutcome
	select {
	case outcome = <-outcomes:
	case <-time.After(s.timeout):
		// The widget never signals abandonment on its own. Resolve the
		// attempt as cancelled; if a callback won the race, the channel
		// already holds the real outcome.
		s.abandoner.Abandon(descriptor.OrderID)
		outcome = <-outcomes
	}

	switch outcome.Status {
	case models.PaymentSucceeded:
		if !s.verifier.VerifyPaymentSignature(outcome.OrderID, outcome.PaymentID, outcome.Signature) {
			s.publish("payment.failed", descriptor, map[string]interface{}{"reason": ErrBadSignature.Error()})
			s.finish(userID, "Payment could not be verified. Your cart is unchanged.")
			return
		}
		store.Clear()
		s.publish("payment.captured", descriptor, map[string]interface{}{"payment_id": outcome.PaymentID})
		s.finish(userID, "Payment successful! Thank you for your order.")
	case models.PaymentFailed:
		s.publish("payment.failed", descriptor, map[string]interface{}{"reason": outcome.Reason})
		s.finish(userID, fmt.Sprintf("Payment failed: %s. Your cart is unchanged.", outcome.Reason))
	case models.PaymentCancelled:
		s.publish("payment.cancelled", descriptor, nil)
		s.finish(userID, "Payment was not completed. Your cart is unchanged.")
	}
}

// finish reports the outcome and returns the owner's orchestrator to Idle.
func (s *CheckoutService) finish(userID, message string) {
	s.notifier.Notify(userID, message)

	s.mu.Lock()
	delete(s.attempts, userID)
	s.mu.Unlock()
}

// publish emits a payment lifecycle event; a nil publisher skips it.
func (s *CheckoutService) publish(eventType string, descriptor models.OrderDescriptor, extra map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"order_id": descriptor.OrderID,
		"amount":   descriptor.Amount,
		"currency": descriptor.Currency,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.publisher.PublishPaymentEvent(eventType, payload); err != nil {
		log.Printf("Warning: failed to publish %s for order %s: %v", eventType, descriptor.OrderID, err)
	}
}
