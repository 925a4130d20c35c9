package gateway

import "context"

// Amounts are integer minor units; Currency is an ISO 4217 code.
// Drivers return vendor-native status strings untouched; normalization into
// internal enums happens in the orchestrators, not here.

type CreateIntentRequest struct {
	PayerID     uint
	PayeeID     uint
	AmountCents int64
	Currency    string
	Description string
	MethodToken string
	Metadata    map[string]any
}

type IntentResponse struct {
	Provider         string
	ProviderIntentID string
	ClientSecret     string
	Status           string
	Raw              map[string]any
}

type StatusResponse struct {
	Status string
	Raw    map[string]any
}

type CaptureRequest struct {
	ProviderIntentID string
	AmountCents      int64
	Currency         string
	MethodToken      string
}

type CaptureResponse struct {
	ProviderPaymentID string
	AmountCents       int64
	Status            string
	Raw               map[string]any
}

type RefundRequest struct {
	ProviderPaymentID string
	AmountCents       int64
	Currency          string
	Reason            string
}

type RefundResponse struct {
	ProviderRefundID string
	AmountCents      int64
	Status           string
	Raw              map[string]any
}

type CreateSubscriptionRequest struct {
	SubscriberID  uint
	CreatorID     uint
	AmountCents   int64
	Currency      string
	Interval      string
	IntervalCount int
	TrialDays     int
	MethodToken   string
}

type SubscriptionResponse struct {
	Provider               string
	ProviderSubscriptionID string
	Status                 string
	Raw                    map[string]any
}

type SwapSubscriptionRequest struct {
	AmountCents   int64
	Currency      string
	Interval      string
	IntervalCount int
	PlanRef       string
}

// Driver is the contract every one-off payment provider must satisfy.
type Driver interface {
	Name() string
	CreateIntent(ctx context.Context, req CreateIntentRequest) (IntentResponse, error)
	ConfirmIntent(ctx context.Context, providerIntentID string, opts map[string]any) (StatusResponse, error)
	CancelIntent(ctx context.Context, providerIntentID string, opts map[string]any) (StatusResponse, error)
	CapturePayment(ctx context.Context, req CaptureRequest) (CaptureResponse, error)
	RefundPayment(ctx context.Context, req RefundRequest) (RefundResponse, error)
}

// SubscriptionDriver is the recurring-billing contract. A provider may
// implement both interfaces on one type.
type SubscriptionDriver interface {
	Name() string
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error
	ResumeSubscription(ctx context.Context, providerSubscriptionID string) error
	SwapSubscription(ctx context.Context, providerSubscriptionID string, req SwapSubscriptionRequest) (SubscriptionResponse, error)
}

// CardDetails are display-only fields for a vaulted token.
type CardDetails struct {
	Brand       string
	LastFour    string
	ExpMonth    int
	ExpYear     int
	Fingerprint string
}

// TokenInspector is the optional token-detail lookup capability the vault
// uses when the caller omits card details. Checked by type assertion;
// absence surfaces ErrCapabilityUnsupported.
type TokenInspector interface {
	TokenDetails(ctx context.Context, providerTokenID string) (CardDetails, error)
}
