package domain

import "time"

// Domain event names consumed by notification/analytics collaborators.
const (
	EventPaymentInitiated       = "payment.initiated"
	EventPaymentCaptured        = "payment.captured"
	EventPaymentFailed          = "payment.failed"
	EventPaymentCancelled       = "payment.cancelled"
	EventPaymentRefunded        = "payment.refunded"
	EventIntentCreated          = "payment_intent.created"
	EventIntentSucceeded        = "payment_intent.succeeded"
	EventIntentCancelled        = "payment_intent.cancelled"
	EventSubscriptionStarted    = "subscription.started"
	EventSubscriptionRenewed    = "subscription.renewed"
	EventSubscriptionGrace      = "subscription.entered_grace"
	EventSubscriptionExpired    = "subscription.expired"
	EventSubscriptionCancelled  = "subscription.cancelled"
	EventSubscriptionPayFailed  = "subscription.payment_failed"
	EventPaymentTokenCreated    = "payment_token.created"
)

// Event is a fire-and-forget domain event.
type Event struct {
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(name string, payload map[string]any) Event {
	return Event{Name: name, OccurredAt: time.Now(), Payload: payload}
}
