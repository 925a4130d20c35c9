package gateway

import (
	"context"
	"fmt"
	"sync/atomic"
)

// StubDriver is a no-op provider for development. Every call succeeds with a
// deterministic reference; swap in a real driver via the registry.
type StubDriver struct {
	seq atomic.Uint64
}

func NewStubDriver() *StubDriver { return &StubDriver{} }

func (s *StubDriver) Name() string { return "stub" }

func (s *StubDriver) ref(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, s.seq.Add(1))
}

func (s *StubDriver) CreateIntent(ctx context.Context, req CreateIntentRequest) (IntentResponse, error) {
	id := s.ref("stub_in")
	return IntentResponse{
		Provider:         s.Name(),
		ProviderIntentID: id,
		ClientSecret:     id + "_secret",
		Status:           "requires_confirmation",
		Raw:              map[string]any{"intent_id": id},
	}, nil
}

func (s *StubDriver) ConfirmIntent(ctx context.Context, providerIntentID string, opts map[string]any) (StatusResponse, error) {
	return StatusResponse{Status: "succeeded", Raw: map[string]any{"intent_id": providerIntentID}}, nil
}

func (s *StubDriver) CancelIntent(ctx context.Context, providerIntentID string, opts map[string]any) (StatusResponse, error) {
	return StatusResponse{Status: "cancelled", Raw: map[string]any{"intent_id": providerIntentID}}, nil
}

func (s *StubDriver) CapturePayment(ctx context.Context, req CaptureRequest) (CaptureResponse, error) {
	return CaptureResponse{
		ProviderPaymentID: s.ref("stub_tx"),
		AmountCents:       req.AmountCents,
		Status:            "paid",
		Raw:               map[string]any{"intent_id": req.ProviderIntentID},
	}, nil
}

func (s *StubDriver) RefundPayment(ctx context.Context, req RefundRequest) (RefundResponse, error) {
	return RefundResponse{
		ProviderRefundID: s.ref("stub_rf"),
		AmountCents:      req.AmountCents,
		Status:           "succeeded",
		Raw:              map[string]any{"transaction_id": req.ProviderPaymentID},
	}, nil
}

func (s *StubDriver) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (SubscriptionResponse, error) {
	status := "active"
	if req.TrialDays > 0 {
		status = "trialing"
	}
	return SubscriptionResponse{
		Provider:               s.Name(),
		ProviderSubscriptionID: s.ref("stub_sub"),
		Status:                 status,
		Raw:                    map[string]any{},
	}, nil
}

func (s *StubDriver) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	return nil
}

func (s *StubDriver) ResumeSubscription(ctx context.Context, providerSubscriptionID string) error {
	return nil
}

func (s *StubDriver) SwapSubscription(ctx context.Context, providerSubscriptionID string, req SwapSubscriptionRequest) (SubscriptionResponse, error) {
	return SubscriptionResponse{
		Provider:               s.Name(),
		ProviderSubscriptionID: providerSubscriptionID,
		Status:                 "active",
		Raw:                    map[string]any{},
	}, nil
}

func (s *StubDriver) TokenDetails(ctx context.Context, providerTokenID string) (CardDetails, error) {
	return CardDetails{
		Brand:       "visa",
		LastFour:    "4242",
		ExpMonth:    12,
		ExpYear:     2030,
		Fingerprint: "fp_" + providerTokenID,
	}, nil
}
