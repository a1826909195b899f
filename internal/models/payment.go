package models

// OrderDescriptor is the minimal, non-secret handle the payment widget needs
// to collect payment for one checkout attempt. Amount is in paise (minor
// currency units). Created per attempt and never reused across attempts.
type OrderDescriptor struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	Receipt  string `json:"-"`
}

// PaymentStatus tags the terminal result of a gateway interaction.
type PaymentStatus int

const (
	PaymentSucceeded PaymentStatus = iota
	PaymentFailed
	PaymentCancelled
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentSucceeded:
		return "succeeded"
	case PaymentFailed:
		return "failed"
	case PaymentCancelled:
		return "cancelled"
	}
	return "unknown"
}

// PaymentOutcome is the normalized result of the gateway's callback pair.
// PaymentID and Signature are set only for PaymentSucceeded; Reason only for
// PaymentFailed. Consumed exactly once by the checkout orchestrator.
type PaymentOutcome struct {
	Status    PaymentStatus
	PaymentID string
	OrderID   string
	Signature string
	Reason    string
}

// Prefill carries optional user details into the payment widget. Empty
// strings are valid placeholders.
type Prefill struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
