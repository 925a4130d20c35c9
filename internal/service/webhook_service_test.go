package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"velour/internal/domain"
	"velour/internal/events"
	"velour/internal/models"
	"velour/pkg/gateway"
)

const webhookTestSecret = "whsec_test"

type webhookFixture struct {
	processor *WebhookProcessor
	webhooks  *fakeWebhookStore
	payments  *fakePaymentStore
	subs      *fakeSubscriptionStore
	sink      *events.MemorySink
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	payments := newFakePaymentStore()
	webhooks := newFakeWebhookStore()
	subStore := newFakeSubscriptionStore()
	sink := events.NewMemorySink()
	drv := newFakeDriver()
	reg := gateway.NewRegistry(drv.Name())
	reg.Register(drv)
	subSvc := NewSubscriptionService(subStore, nil, reg, sink, zap.NewNop())
	subSvc.now = func() time.Time { return testNow }

	p := NewWebhookProcessor(webhooks, payments, subSvc, sink, zap.NewNop(), webhookTestSecret, true)
	p.now = func() time.Time { return testNow }
	return &webhookFixture{processor: p, webhooks: webhooks, payments: payments, subs: subStore, sink: sink}
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// deliver stores a signed webhook row and processes it.
func (f *webhookFixture) deliver(t *testing.T, provider, body string) (domain.WebhookStatus, *models.PaymentWebhook) {
	t.Helper()
	w := f.webhooks.add(&models.PaymentWebhook{
		Provider:  provider,
		Payload:   datatypes.JSON(body),
		Signature: sign([]byte(body)),
		Status:    domain.WebhookReceived,
	})
	status, err := f.processor.Process(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return status, f.webhooks.rows[w.ID]
}

func (f *webhookFixture) seedPendingPayment(providerRef string) *models.Payment {
	ref := providerRef
	p := &models.Payment{
		PayerID:           1,
		PayeeID:           2,
		PayableKind:       domain.PayableTip,
		PayableID:         7,
		AmountCents:       1000,
		Currency:          "USD",
		Provider:          "faketest",
		ProviderPaymentID: &ref,
		Status:            domain.PaymentPending,
	}
	p.ID = f.payments.id()
	f.payments.payments[p.ID] = p
	return p
}

func TestWebhookPaymentSucceeded(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.seedPendingPayment("txn_100")

	body := `{"event":"payment.succeeded","event_id":"evt_1","transaction_id":"txn_100"}`
	status, row := f.deliver(t, "faketest", body)
	if status != domain.WebhookProcessed {
		t.Fatalf("status = %s, want PROCESSED", status)
	}
	if row.EventName != "payment.succeeded" || row.ProviderRef != "txn_100" {
		t.Errorf("parsed fields wrong: %+v", row)
	}

	updated, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if updated.Status != domain.PaymentCaptured {
		t.Errorf("payment status = %s, want CAPTURED", updated.Status)
	}
	if updated.CapturedAt == nil {
		t.Errorf("captured_at not set")
	}
	if countNames(f.sink.Names(), domain.EventPaymentCaptured) != 1 {
		t.Errorf("payment.captured emitted %d times: %v", countNames(f.sink.Names(), domain.EventPaymentCaptured), f.sink.Names())
	}
}

func TestWebhookDuplicateDeliveries(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.seedPendingPayment("txn_200")

	body := `{"event":"payment.succeeded","event_id":"evt_dup","transaction_id":"txn_200"}`
	for i := 0; i < 3; i++ {
		status, _ := f.deliver(t, "faketest", body)
		if status != domain.WebhookProcessed {
			t.Fatalf("delivery %d: status = %s, want PROCESSED", i+1, status)
		}
	}

	updated, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if updated.Status != domain.PaymentCaptured {
		t.Errorf("payment status = %s, want CAPTURED", updated.Status)
	}
	if n := countNames(f.sink.Names(), domain.EventPaymentCaptured); n != 1 {
		t.Errorf("payment.captured emitted %d times across 3 deliveries, want 1", n)
	}
}

func TestWebhookRedeliveryAfterFailure(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.seedPendingPayment("txn_700")

	body := `{"event":"payment.succeeded","event_id":"evt_retry","transaction_id":"txn_700"}`

	f.payments.lockErr = errors.New("lock wait timeout")
	status, _ := f.deliver(t, "faketest", body)
	if status != domain.WebhookFailed {
		t.Fatalf("first delivery: status = %s, want FAILED", status)
	}
	stuck, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if stuck.Status != domain.PaymentPending {
		t.Fatalf("payment mutated despite the store error: %s", stuck.Status)
	}

	// the provider retries the same event id; a failed first attempt must
	// not count as already handled
	status, _ = f.deliver(t, "faketest", body)
	if status != domain.WebhookProcessed {
		t.Fatalf("redelivery: status = %s, want PROCESSED", status)
	}
	updated, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if updated.Status != domain.PaymentCaptured {
		t.Errorf("payment status = %s, want CAPTURED", updated.Status)
	}
	if n := countNames(f.sink.Names(), domain.EventPaymentCaptured); n != 1 {
		t.Errorf("payment.captured emitted %d times, want 1", n)
	}

	t.Run("LaterDuplicateHasNoEffect", func(t *testing.T) {
		status, _ := f.deliver(t, "faketest", body)
		if status != domain.WebhookProcessed {
			t.Fatalf("status = %s, want PROCESSED", status)
		}
		if n := countNames(f.sink.Names(), domain.EventPaymentCaptured); n != 1 {
			t.Errorf("payment.captured emitted %d times after replay, want 1", n)
		}
	})
}

func TestWebhookDuplicateWithoutEventID(t *testing.T) {
	f := newWebhookFixture(t)
	f.seedPendingPayment("txn_250")

	// no canonical event id: dedup falls back to the provider-ref scan
	body := `{"event":"payment.succeeded","transaction_id":"txn_250"}`
	f.deliver(t, "faketest", body)
	f.deliver(t, "faketest", body)

	if n := countNames(f.sink.Names(), domain.EventPaymentCaptured); n != 1 {
		t.Errorf("payment.captured emitted %d times, want 1", n)
	}
}

func TestWebhookUnknownEvent(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.seedPendingPayment("txn_300")

	status, _ := f.deliver(t, "faketest", `{"event":"foo.bar","event_id":"evt_u","transaction_id":"txn_300"}`)
	if status != domain.WebhookProcessed {
		t.Fatalf("unknown events are handled, not failed: status = %s", status)
	}
	updated, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if updated.Status != domain.PaymentPending {
		t.Errorf("unknown event must not touch the payment: %s", updated.Status)
	}
	if len(f.sink.Events()) != 0 {
		t.Errorf("unknown event must not emit: %v", f.sink.Names())
	}
}

func TestWebhookInvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	w := f.webhooks.add(&models.PaymentWebhook{
		Provider:  "faketest",
		Payload:   datatypes.JSON(`{"event":"payment.succeeded","event_id":"evt_sig"}`),
		Signature: "deadbeef",
		Status:    domain.WebhookReceived,
	})
	status, err := f.processor.Process(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != domain.WebhookFailed {
		t.Errorf("status = %s, want FAILED", status)
	}
	if f.webhooks.rows[w.ID].Error == nil {
		t.Errorf("failure reason not recorded")
	}
}

func TestWebhookMissingPaymentIsSkipped(t *testing.T) {
	f := newWebhookFixture(t)

	status, _ := f.deliver(t, "faketest", `{"event":"payment.succeeded","event_id":"evt_m","transaction_id":"txn_never"}`)
	if status != domain.WebhookProcessed {
		t.Errorf("unknown payment must not fail the delivery: %s", status)
	}
	if len(f.sink.Events()) != 0 {
		t.Errorf("no events expected: %v", f.sink.Names())
	}
}

func TestWebhookPaymentRefunded(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.seedPendingPayment("txn_400")
	p.Status = domain.PaymentCaptured

	body := `{"event":"payment.refunded","event_id":"evt_r1","transaction_id":"txn_400","refund_id":"rf_1","amount":250}`
	status, _ := f.deliver(t, "faketest", body)
	if status != domain.WebhookProcessed {
		t.Fatalf("status = %s, want PROCESSED", status)
	}

	updated, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if updated.Status != domain.PaymentRefunded {
		t.Errorf("payment status = %s, want REFUNDED", updated.Status)
	}
	if len(f.payments.refunds) != 1 {
		t.Fatalf("refund rows = %d, want 1", len(f.payments.refunds))
	}
	if f.payments.refunds[0].AmountCents != 250 {
		t.Errorf("refund amount = %d, want 250", f.payments.refunds[0].AmountCents)
	}

	t.Run("ReplayDoesNotDuplicate", func(t *testing.T) {
		replay := `{"event":"payment.refunded","event_id":"evt_r2","transaction_id":"txn_400","refund_id":"rf_1","amount":250}`
		status, _ := f.deliver(t, "faketest", replay)
		if status != domain.WebhookProcessed {
			t.Fatalf("status = %s, want PROCESSED", status)
		}
		if len(f.payments.refunds) != 1 {
			t.Errorf("refund rows = %d after replay, want 1", len(f.payments.refunds))
		}
		if n := countNames(f.sink.Names(), domain.EventPaymentRefunded); n != 1 {
			t.Errorf("payment.refunded emitted %d times, want 1", n)
		}
	})
}

func TestWebhookStaleSuccessAfterRefund(t *testing.T) {
	f := newWebhookFixture(t)
	p := f.seedPendingPayment("txn_500")
	p.Status = domain.PaymentRefunded

	status, _ := f.deliver(t, "faketest", `{"event":"payment.succeeded","event_id":"evt_s","transaction_id":"txn_500"}`)
	if status != domain.WebhookProcessed {
		t.Fatalf("status = %s, want PROCESSED", status)
	}
	updated, _ := f.payments.PaymentByID(context.Background(), p.ID)
	if updated.Status != domain.PaymentRefunded {
		t.Errorf("terminal payment downgraded to %s", updated.Status)
	}
	if len(f.sink.Events()) != 0 {
		t.Errorf("stale success must not emit: %v", f.sink.Names())
	}
}

func TestWebhookSubscriptionBridge(t *testing.T) {
	f := newWebhookFixture(t)

	sub := &models.PaymentSubscription{
		SubscriberID:  1,
		CreatorID:     2,
		Status:        domain.SubscriptionActive,
		Provider:      "faketest",
		Interval:      domain.IntervalMonthly,
		IntervalCount: 1,
		AutoRenew:     true,
		StartsAt:      testNow.AddDate(0, -1, 0),
	}
	end := testNow
	sub.EndsAt = &end
	if err := f.subs.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}

	p := f.seedPendingPayment("txn_600")
	p.PayableKind = domain.PayableSubscription
	p.PayableID = sub.ID

	t.Run("SuccessRenews", func(t *testing.T) {
		body := `{"event":"renewal_success","event_id":"evt_rn","transaction_id":"txn_600"}`
		status, _ := f.deliver(t, "faketest", body)
		if status != domain.WebhookProcessed {
			t.Fatalf("status = %s, want PROCESSED", status)
		}
		renewed, _ := f.subs.ByID(context.Background(), sub.ID)
		if renewed.Status != domain.SubscriptionActive {
			t.Errorf("status = %s, want ACTIVE", renewed.Status)
		}
		if !renewed.EndsAt.After(end) {
			t.Errorf("renewal did not advance ends_at: %s", renewed.EndsAt)
		}
		if countNames(f.sink.Names(), domain.EventSubscriptionRenewed) != 1 {
			t.Errorf("subscription.renewed not emitted: %v", f.sink.Names())
		}
	})

	t.Run("FailureMarksPastDue", func(t *testing.T) {
		p2 := f.seedPendingPayment("txn_601")
		p2.PayableKind = domain.PayableSubscription
		p2.PayableID = sub.ID

		body := `{"event":"renewal_failure","event_id":"evt_rf","transaction_id":"txn_601","failure_reason":"card expired"}`
		status, _ := f.deliver(t, "faketest", body)
		if status != domain.WebhookProcessed {
			t.Fatalf("status = %s, want PROCESSED", status)
		}
		updated, _ := f.subs.ByID(context.Background(), sub.ID)
		if updated.Status != domain.SubscriptionPastDue {
			t.Errorf("status = %s, want PAST_DUE", updated.Status)
		}
	})
}

func TestNormalizeEventName(t *testing.T) {
	cases := map[string]string{
		"payment.succeeded":   webhookPaymentSucceeded,
		"Charge.Succeeded":    webhookPaymentSucceeded,
		"RenewalSuccess":      webhookPaymentSucceeded,
		"transaction.declined": webhookPaymentFailed,
		"chargeback":          webhookPaymentRefunded,
		"token.created":       webhookTokenCreated,
		"somebody.new":        webhookUnknown,
		"":                    webhookUnknown,
	}
	for in, want := range cases {
		if got := normalizeEventName(in); got != want {
			t.Errorf("normalizeEventName(%q) = %q, want %q", in, got, want)
		}
	}
}
