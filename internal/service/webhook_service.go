package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"velour/internal/domain"
	"velour/internal/events"
	"velour/internal/models"
	"velour/internal/repository"
)

// WebhookStore is what the processor needs from the webhook ledger.
type WebhookStore interface {
	ByID(ctx context.Context, id uint) (*models.PaymentWebhook, error)
	ClaimEventID(ctx context.Context, w *models.PaymentWebhook, eventID string) error
	EventClaimant(ctx context.Context, provider, eventID string) (*models.PaymentWebhook, error)
	PriorProcessedExists(ctx context.Context, provider, providerRef string, excludeID uint) (bool, error)
	MarkProcessed(ctx context.Context, w *models.PaymentWebhook) error
	MarkFailed(ctx context.Context, w *models.PaymentWebhook, reason string) error
	SaveParsed(ctx context.Context, w *models.PaymentWebhook) error
}

// Internal webhook event taxonomy.
const (
	webhookPaymentSucceeded = "payment.succeeded"
	webhookPaymentFailed    = "payment.failed"
	webhookPaymentRefunded  = "payment.refunded"
	webhookTokenCreated     = "payment_token.created"
	webhookUnknown          = "unknown"
)

// WebhookProcessor turns an untrusted, possibly-duplicated, possibly
// out-of-order provider callback into an exactly-once-effect mutation.
// Nothing escapes Process: every failure lands in the webhook row's status,
// never in the ingestion endpoint.
type WebhookProcessor struct {
	webhooks WebhookStore
	payments PaymentStore
	subs     *SubscriptionService
	sink     events.Sink
	logger   *zap.Logger
	secret   string
	verify   bool
	now      func() time.Time
}

func NewWebhookProcessor(webhooks WebhookStore, payments PaymentStore, subs *SubscriptionService, sink events.Sink, logger *zap.Logger, secret string, verify bool) *WebhookProcessor {
	return &WebhookProcessor{
		webhooks: webhooks,
		payments: payments,
		subs:     subs,
		sink:     sink,
		logger:   logger,
		secret:   secret,
		verify:   verify,
		now:      time.Now,
	}
}

// Process handles one stored webhook row. The returned status is the row's
// final state; the error is non-nil only when the row itself could not be
// loaded or updated.
func (p *WebhookProcessor) Process(ctx context.Context, webhookID uint) (domain.WebhookStatus, error) {
	w, err := p.webhooks.ByID(ctx, webhookID)
	if err != nil {
		return "", err
	}

	// one correlation id per processing attempt, threaded through every line
	log := p.logger.With(
		zap.String("correlation_id", uuid.NewString()),
		zap.Uint("webhook_id", w.ID),
		zap.String("provider", w.Provider),
	)

	// 1. signature
	if p.verify && p.secret != "" {
		if !verifySignature(p.secret, w.Payload, w.Signature) {
			log.Warn("webhook signature mismatch")
			if err := p.webhooks.MarkFailed(ctx, w, "invalid signature"); err != nil {
				return "", err
			}
			return domain.WebhookFailed, nil
		}
	} else {
		// explicit operator opt-out, never silent
		log.Warn("webhook signature verification disabled")
	}

	payload := parsePayload(w.Payload)
	w.EventName = firstString(payload, "event", "type", "event_type", "eventType")
	w.ProviderRef = firstString(payload, "transaction_id", "payment_id", "transactionId", "reference")
	if err := p.webhooks.SaveParsed(ctx, w); err != nil {
		return "", err
	}
	log = log.With(zap.String("event_name", w.EventName))

	// 2. idempotency: claim the canonical event id when present, otherwise
	// fall back to the best-effort prior-row scan on the transaction ref
	eventID := firstString(payload, "event_id", "eventId", "id")
	if eventID != "" {
		if err := p.webhooks.ClaimEventID(ctx, w, eventID); err != nil {
			if !errors.Is(err, repository.ErrDuplicateWebhook) {
				return "", err
			}
			owner, oerr := p.webhooks.EventClaimant(ctx, w.Provider, eventID)
			if oerr != nil && !NotFound(oerr) {
				return "", oerr
			}
			if oerr == nil && owner.Status == domain.WebhookProcessed {
				log.Info("duplicate webhook delivery, skipping", zap.String("event_id", eventID))
				if err := p.webhooks.MarkProcessed(ctx, w); err != nil {
					return "", err
				}
				return domain.WebhookProcessed, nil
			}
			// the claiming attempt never completed; this is the provider's
			// retry, so dispatch again. Row locks and terminal-state checks
			// keep re-application safe.
			log.Info("redelivery of an incomplete event, reapplying", zap.String("event_id", eventID))
		}
	} else {
		dup, err := p.webhooks.PriorProcessedExists(ctx, w.Provider, w.ProviderRef, w.ID)
		if err != nil {
			return "", err
		}
		if dup {
			log.Info("duplicate webhook delivery (ref scan), skipping", zap.String("provider_ref", w.ProviderRef))
			if err := p.webhooks.MarkProcessed(ctx, w); err != nil {
				return "", err
			}
			return domain.WebhookProcessed, nil
		}
	}

	// 3-4. map + dispatch, with the processor boundary catching everything
	if err := p.dispatch(ctx, log, w, payload); err != nil {
		log.Error("webhook processing failed", zap.Error(err))
		if merr := p.webhooks.MarkFailed(ctx, w, err.Error()); merr != nil {
			return "", merr
		}
		return domain.WebhookFailed, nil
	}

	// 5. completion
	if err := p.webhooks.MarkProcessed(ctx, w); err != nil {
		return "", err
	}
	log.Info("webhook processed")
	return domain.WebhookProcessed, nil
}

func (p *WebhookProcessor) dispatch(ctx context.Context, log *zap.Logger, w *models.PaymentWebhook, payload map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch normalizeEventName(w.EventName) {
	case webhookPaymentSucceeded:
		return p.applyPaymentOutcome(ctx, log, w, payload, true)
	case webhookPaymentFailed:
		return p.applyPaymentOutcome(ctx, log, w, payload, false)
	case webhookPaymentRefunded:
		return p.applyRefund(ctx, log, w, payload)
	case webhookTokenCreated:
		p.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentTokenCreated, map[string]any{
			"provider": w.Provider,
			"token":    maskToken(firstString(payload, "token_id", "token")),
		}))
		return nil
	default:
		// recorded as handled-but-unknown; no payment is touched
		log.Info("unknown webhook event, recording without effect")
		return nil
	}
}

// applyPaymentOutcome mirrors the capture/fail outcomes of the payment
// orchestrator, driven by the vendor's current report rather than assumed
// local state. A payment that is not yet visible is logged and skipped: the
// delivery is not a failure.
func (p *WebhookProcessor) applyPaymentOutcome(ctx context.Context, log *zap.Logger, w *models.PaymentWebhook, payload map[string]any, succeeded bool) error {
	payment, err := p.payments.PaymentByProviderRef(ctx, w.Provider, w.ProviderRef)
	if err != nil {
		if NotFound(err) {
			log.Info("webhook payment not found, skipping", zap.String("provider_ref", w.ProviderRef))
			return nil
		}
		return err
	}

	if payment.Status.Terminal() {
		log.Info("payment already terminal, ignoring stale webhook",
			zap.Uint("payment_id", payment.ID),
			zap.String("status", string(payment.Status)),
		)
		return nil
	}

	now := p.now()
	var applied bool
	mutate := func(pm *models.Payment) error {
		// re-checked under the row lock
		if pm.Status.Terminal() {
			return nil
		}
		if succeeded {
			if pm.Status == domain.PaymentCaptured {
				return nil
			}
			pm.Status = domain.PaymentCaptured
			pm.CapturedAt = &now
			pm.SucceededAt = &now
		} else {
			if pm.Status != domain.PaymentPending && pm.Status != domain.PaymentAuthorized {
				return nil
			}
			pm.Status = domain.PaymentFailed
		}
		pm.Metadata = domain.MergeJSON(pm.Metadata, domain.Metadata{"webhook": payload})
		applied = true
		return nil
	}

	// keep the intent in step with the payment when one exists
	intent, ierr := p.payments.IntentByPaymentID(ctx, payment.ID)
	if ierr == nil {
		if succeeded {
			intent.Status = domain.IntentSucceeded
			intent.ConfirmedAt = &now
		} else {
			intent.Status = domain.IntentFailed
		}
		if _, err := p.payments.FinalizeIntent(ctx, intent, mutate); err != nil {
			return err
		}
	} else if NotFound(ierr) {
		if _, err := p.payments.UpdateLockedPayment(ctx, payment.ID, mutate); err != nil {
			return err
		}
	} else {
		return ierr
	}

	if !applied {
		log.Info("webhook outcome already reflected, no-op",
			zap.Uint("payment_id", payment.ID),
			zap.String("status", string(payment.Status)),
		)
		return nil
	}

	if succeeded {
		p.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentCaptured, map[string]any{
			"payment_id": payment.ID,
			"amount":     payment.AmountCents,
			"currency":   payment.Currency,
			"provider":   payment.Provider,
		}))
	} else {
		p.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentFailed, map[string]any{
			"payment_id": payment.ID,
			"provider":   payment.Provider,
			"reason":     firstString(payload, "failure_reason", "reason", "message"),
		}))
	}

	// bridge renewal charges into the subscription state machine
	if payment.PayableKind == domain.PayableSubscription && p.subs != nil {
		if succeeded {
			if _, err := p.subs.RecordSuccessfulPayment(ctx, payment.PayableID, now); err != nil && !NotFound(err) {
				return err
			}
		} else {
			reason := firstString(payload, "failure_reason", "reason", "message")
			if _, err := p.subs.RecordFailedPayment(ctx, payment.PayableID, reason); err != nil && !NotFound(err) {
				return err
			}
		}
	}
	return nil
}

// applyRefund records a provider-initiated refund. The unique (provider,
// provider_refund_id) pair makes a replayed or already-issued refund a no-op.
func (p *WebhookProcessor) applyRefund(ctx context.Context, log *zap.Logger, w *models.PaymentWebhook, payload map[string]any) error {
	payment, err := p.payments.PaymentByProviderRef(ctx, w.Provider, w.ProviderRef)
	if err != nil {
		if NotFound(err) {
			log.Info("webhook payment not found, skipping", zap.String("provider_ref", w.ProviderRef))
			return nil
		}
		return err
	}

	refundRef := firstString(payload, "refund_id", "refundId")
	if refundRef == "" {
		// providers that omit a refund id still get deduplicated via the
		// event id stamped on this delivery
		refundRef = firstString(payload, "event_id", "eventId", "id")
	}
	if refundRef == "" {
		return errors.New("refund webhook missing refund_id")
	}

	exists, err := p.payments.RefundExists(ctx, payment.Provider, refundRef)
	if err != nil {
		return err
	}
	if exists {
		log.Info("refund already recorded, skipping", zap.String("provider_refund_id", refundRef))
		return nil
	}

	now := p.now()
	amount := amountCents(payload, "amount")
	if amount == 0 {
		amount = payment.AmountCents
	}
	refund := &models.PaymentRefund{
		AmountCents:      amount,
		Currency:         payment.Currency,
		Status:           domain.RefundSucceeded,
		Reason:           firstString(payload, "reason"),
		Provider:         payment.Provider,
		ProviderRefundID: refundRef,
		ProcessedAt:      &now,
	}
	err = p.payments.AddRefund(ctx, payment.ID, refund, func(pm *models.Payment) error {
		pm.Status = domain.PaymentRefunded
		pm.RefundedAt = &now
		pm.Metadata = domain.MergeJSON(pm.Metadata, domain.Metadata{"webhook": payload})
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateRefund) {
		log.Info("refund raced another writer, skipping", zap.String("provider_refund_id", refundRef))
		return nil
	}
	if err != nil {
		return err
	}

	p.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentRefunded, map[string]any{
		"payment_id": payment.ID,
		"amount":     refund.AmountCents,
		"currency":   refund.Currency,
	}))
	return nil
}

// verifySignature checks an HMAC-SHA256 hex digest over the raw payload.
// Accepts an optional "sha256=" prefix; comparison is constant-time.
func verifySignature(secret string, payload []byte, signature string) bool {
	signature = strings.TrimPrefix(signature, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// normalizeEventName maps the provider's vocabulary onto the internal
// taxonomy. Case-insensitive and tolerant of the spellings seen across
// vendors; anything else is unknown, which is handled, not an error.
func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "payment.succeeded", "payment_succeeded", "payment.success",
		"charge.succeeded", "transaction.approved", "renewal_success",
		"renewalsuccess", "sale_success":
		return webhookPaymentSucceeded
	case "payment.failed", "payment_failed", "payment.failure",
		"charge.failed", "transaction.declined", "renewal_failure",
		"renewalfailure":
		return webhookPaymentFailed
	case "payment.refunded", "payment_refunded", "refund.succeeded",
		"charge.refunded", "refund", "chargeback":
		return webhookPaymentRefunded
	case "payment_token.created", "payment_token_created", "token.created",
		"paymenttokencreated":
		return webhookTokenCreated
	}
	return webhookUnknown
}

func parsePayload(raw []byte) map[string]any {
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

func firstString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := payload[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func amountCents(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
