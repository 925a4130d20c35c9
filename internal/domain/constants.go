package domain

// IntentStatus is the internal state of a payment intent.
type IntentStatus string

const (
	IntentPending              IntentStatus = "PENDING"
	IntentRequiresMethod       IntentStatus = "REQUIRES_METHOD"
	IntentRequiresConfirmation IntentStatus = "REQUIRES_CONFIRMATION"
	IntentProcessing           IntentStatus = "PROCESSING"
	IntentSucceeded            IntentStatus = "SUCCEEDED"
	IntentFailed               IntentStatus = "FAILED"
	IntentCancelled            IntentStatus = "CANCELLED"
)

// PaymentStatus is the internal state of a payment.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentAuthorized PaymentStatus = "AUTHORIZED"
	PaymentCaptured   PaymentStatus = "CAPTURED"
	PaymentSettled    PaymentStatus = "SETTLED"
	PaymentFailed     PaymentStatus = "FAILED"
	PaymentRefunded   PaymentStatus = "REFUNDED"
	PaymentCancelled  PaymentStatus = "CANCELLED"
)

// Terminal reports whether the payment may no longer change state.
// Terminal states are never downgraded by late webhooks.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentRefunded, PaymentCancelled, PaymentSettled:
		return true
	}
	return false
}

// SubscriptionStatus is the internal state of a recurring subscription.
type SubscriptionStatus string

const (
	SubscriptionPending   SubscriptionStatus = "PENDING"
	SubscriptionTrialing  SubscriptionStatus = "TRIALING"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionGrace     SubscriptionStatus = "GRACE"
	SubscriptionCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionExpired   SubscriptionStatus = "EXPIRED"
)

// EntitledSubscriptionStatuses are the states that still grant content access.
var EntitledSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionActive,
	SubscriptionTrialing,
	SubscriptionGrace,
}

// RefundStatus is the internal state of a payment refund.
type RefundStatus string

const (
	RefundPending   RefundStatus = "PENDING"
	RefundSucceeded RefundStatus = "SUCCEEDED"
	RefundFailed    RefundStatus = "FAILED"
)

// MethodStatus is the state of a vaulted payment method.
type MethodStatus string

const (
	MethodActive  MethodStatus = "ACTIVE"
	MethodRemoved MethodStatus = "REMOVED"
)

// WebhookStatus is the processing state of an inbound provider callback.
type WebhookStatus string

const (
	WebhookReceived  WebhookStatus = "RECEIVED"
	WebhookProcessed WebhookStatus = "PROCESSED"
	WebhookFailed    WebhookStatus = "FAILED"
)

// User roles.
const (
	RoleFan     = "FAN"
	RoleCreator = "CREATOR"
	RoleAdmin   = "ADMIN"
)

// PurchaseStatus is the state of a one-off content purchase.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "PENDING"
	PurchaseCompleted PurchaseStatus = "COMPLETED"
	PurchaseRefunded  PurchaseStatus = "REFUNDED"
)
