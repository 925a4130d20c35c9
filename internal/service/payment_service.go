package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"velour/internal/domain"
	"velour/internal/events"
	"velour/internal/models"
	"velour/internal/repository"
	"velour/pkg/gateway"
)

// PaymentStore is what the payment orchestrator needs from persistence.
// Implemented by repository.PaymentRepository; faked in tests.
type PaymentStore interface {
	CreateIntentPair(ctx context.Context, p *models.Payment, intent *models.PaymentIntent) error
	IntentByID(ctx context.Context, id uint) (*models.PaymentIntent, error)
	IntentByPaymentID(ctx context.Context, paymentID uint) (*models.PaymentIntent, error)
	PaymentByID(ctx context.Context, id uint) (*models.Payment, error)
	PaymentByProviderRef(ctx context.Context, provider, ref string) (*models.Payment, error)
	SaveIntent(ctx context.Context, intent *models.PaymentIntent) error
	UpdateLockedPayment(ctx context.Context, paymentID uint, mutate func(p *models.Payment) error) (*models.Payment, error)
	FinalizeIntent(ctx context.Context, intent *models.PaymentIntent, mutatePayment func(p *models.Payment) error) (*models.Payment, error)
	AddRefund(ctx context.Context, paymentID uint, refund *models.PaymentRefund, mutatePayment func(p *models.Payment) error) error
	RefundExists(ctx context.Context, provider, providerRefundID string) (bool, error)
}

// PaymentService owns the Payment/PaymentIntent/PaymentRefund state machines.
// Every gateway call happens before the database transaction: a failed
// gateway call writes nothing locally and the whole operation is a safe retry
// boundary.
type PaymentService struct {
	store    PaymentStore
	gateways *gateway.Registry
	payables *domain.PayableRegistry
	sink     events.Sink
	logger   *zap.Logger
	now      func() time.Time
}

func NewPaymentService(store PaymentStore, gateways *gateway.Registry, payables *domain.PayableRegistry, sink events.Sink, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		store:    store,
		gateways: gateways,
		payables: payables,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

type CreateIntentInput struct {
	PayerID     uint
	PayeeID     uint
	Payable     domain.PayableRef
	AmountCents int64
	FeeCents    int64
	Currency    string
	Method      string
	MethodToken string
	Description string
	Gateway     string
	Metadata    domain.Metadata
}

type IntentResult struct {
	Payment *models.Payment
	Intent  *models.PaymentIntent
}

// CreateIntent negotiates an intent with the gateway and then, in one
// transaction, creates the Payment (status PENDING, net = amount - fee) and
// its PaymentIntent.
func (s *PaymentService) CreateIntent(ctx context.Context, in CreateIntentInput) (*IntentResult, error) {
	if s.payables != nil {
		ok, err := s.payables.Resolve(ctx, in.Payable)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPayableNotFound
		}
	}

	driver, err := s.gateways.Driver(in.Gateway)
	if err != nil {
		return nil, err
	}
	resp, err := driver.CreateIntent(ctx, gateway.CreateIntentRequest{
		PayerID:     in.PayerID,
		PayeeID:     in.PayeeID,
		AmountCents: in.AmountCents,
		Currency:    in.Currency,
		Description: in.Description,
		MethodToken: in.MethodToken,
		Metadata:    in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		PayerID:     in.PayerID,
		PayeeID:     in.PayeeID,
		PayableKind: in.Payable.Kind,
		PayableID:   in.Payable.ID,
		AmountCents: in.AmountCents,
		FeeCents:    in.FeeCents,
		NetCents:    in.AmountCents - in.FeeCents,
		Currency:    in.Currency,
		Method:      in.Method,
		Provider:    resp.Provider,
		Status:      domain.PaymentPending,
		Metadata:    in.Metadata.ToJSON(),
	}
	intent := &models.PaymentIntent{
		PayerID:          in.PayerID,
		PayeeID:          in.PayeeID,
		PayableKind:      in.Payable.Kind,
		PayableID:        in.Payable.ID,
		AmountCents:      in.AmountCents,
		Currency:         in.Currency,
		Provider:         resp.Provider,
		ProviderIntentID: resp.ProviderIntentID,
		ClientSecret:     resp.ClientSecret,
		Status:           domain.MapIntentStatus(resp.Status),
		Metadata:         domain.Metadata(resp.Raw).ToJSON(),
	}
	if err := s.store.CreateIntentPair(ctx, p, intent); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentInitiated, map[string]any{
		"payment_id": p.ID,
		"payer_id":   p.PayerID,
		"payee_id":   p.PayeeID,
		"amount":     p.AmountCents,
		"currency":   p.Currency,
		"payable":    in.Payable.String(),
	}))
	s.sink.Emit(ctx, domain.NewEvent(domain.EventIntentCreated, map[string]any{
		"intent_id":  intent.ID,
		"payment_id": p.ID,
		"provider":   intent.Provider,
		"status":     string(intent.Status),
	}))

	s.logger.Info("payment intent created",
		zap.Uint("payment_id", p.ID),
		zap.Uint("intent_id", intent.ID),
		zap.String("provider", intent.Provider),
		zap.String("status", string(intent.Status)),
	)
	return &IntentResult{Payment: p, Intent: intent}, nil
}

// ConfirmIntent confirms the intent at the gateway and persists the mapped
// status. Emits intent succeeded/cancelled depending on the result.
func (s *PaymentService) ConfirmIntent(ctx context.Context, intentID uint, opts map[string]any, gatewayName string) (*models.PaymentIntent, error) {
	intent, err := s.store.IntentByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	driver, err := s.driverFor(gatewayName, intent.Provider)
	if err != nil {
		return nil, err
	}
	resp, err := driver.ConfirmIntent(ctx, intent.ProviderIntentID, opts)
	if err != nil {
		return nil, err
	}

	now := s.now()
	intent.Status = domain.MapIntentStatus(resp.Status)
	intent.Metadata = domain.MergeJSON(intent.Metadata, domain.Metadata(resp.Raw))
	if intent.Status == domain.IntentSucceeded || intent.Status == domain.IntentProcessing {
		intent.ConfirmedAt = &now
	}
	if err := s.store.SaveIntent(ctx, intent); err != nil {
		return nil, err
	}

	switch intent.Status {
	case domain.IntentSucceeded:
		s.sink.Emit(ctx, domain.NewEvent(domain.EventIntentSucceeded, intentPayload(intent)))
	case domain.IntentCancelled:
		s.sink.Emit(ctx, domain.NewEvent(domain.EventIntentCancelled, intentPayload(intent)))
	}
	return intent, nil
}

// CancelIntent cancels at the gateway, then transactionally updates the
// intent and, under a row lock, marks the linked pending payment cancelled,
// so a racing capture cannot interleave.
func (s *PaymentService) CancelIntent(ctx context.Context, intentID uint, opts map[string]any, gatewayName string) (*models.PaymentIntent, error) {
	intent, err := s.store.IntentByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	driver, err := s.driverFor(gatewayName, intent.Provider)
	if err != nil {
		return nil, err
	}
	resp, err := driver.CancelIntent(ctx, intent.ProviderIntentID, opts)
	if err != nil {
		return nil, err
	}

	now := s.now()
	intent.Status = domain.IntentCancelled
	intent.CancelledAt = &now
	intent.Metadata = domain.MergeJSON(intent.Metadata, domain.Metadata(resp.Raw))

	var cancelled bool
	_, err = s.store.FinalizeIntent(ctx, intent, func(p *models.Payment) error {
		if p.Status != domain.PaymentPending {
			return nil
		}
		p.Status = domain.PaymentCancelled
		p.CancelledAt = &now
		cancelled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, domain.NewEvent(domain.EventIntentCancelled, intentPayload(intent)))
	if cancelled {
		s.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentCancelled, map[string]any{
			"payment_id": intent.PaymentID,
		}))
	}
	return intent, nil
}

type CaptureInput struct {
	AmountCents     int64
	MethodToken     string
	PaymentMethodID *uint
	Gateway         string
}

type CaptureResult struct {
	Payment *models.Payment
	Intent  *models.PaymentIntent
}

// Capture finalizes the intent into a charge. The linked payment row is
// locked while its provider reference, status, amounts and timestamps are
// written and the intent is set to SUCCEEDED.
func (s *PaymentService) Capture(ctx context.Context, intentID uint, in CaptureInput) (*CaptureResult, error) {
	intent, err := s.store.IntentByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	driver, err := s.driverFor(in.Gateway, intent.Provider)
	if err != nil {
		return nil, err
	}
	amount := in.AmountCents
	if amount == 0 {
		amount = intent.AmountCents
	}
	resp, err := driver.CapturePayment(ctx, gateway.CaptureRequest{
		ProviderIntentID: intent.ProviderIntentID,
		AmountCents:      amount,
		Currency:         intent.Currency,
		MethodToken:      in.MethodToken,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := domain.MapPaymentStatus(resp.Status)
	failed := status == domain.PaymentFailed

	if failed {
		intent.Status = domain.IntentFailed
	} else {
		intent.Status = domain.IntentSucceeded
		intent.ConfirmedAt = &now
	}
	intent.Metadata = domain.MergeJSON(intent.Metadata, domain.Metadata(resp.Raw))

	payment, err := s.store.FinalizeIntent(ctx, intent, func(p *models.Payment) error {
		if resp.ProviderPaymentID != "" {
			p.ProviderPaymentID = &resp.ProviderPaymentID
		}
		p.Status = status
		if resp.AmountCents > 0 {
			p.AmountCents = resp.AmountCents
			p.NetCents = p.AmountCents - p.FeeCents
		}
		if in.PaymentMethodID != nil {
			p.PaymentMethodID = in.PaymentMethodID
		}
		if !failed {
			p.CapturedAt = &now
			p.SucceededAt = &now
		}
		p.Metadata = domain.MergeJSON(p.Metadata, domain.Metadata(resp.Raw))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if failed {
		s.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentFailed, map[string]any{
			"payment_id": intent.PaymentID,
			"provider":   intent.Provider,
		}))
	} else {
		s.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentCaptured, map[string]any{
			"payment_id": intent.PaymentID,
			"amount":     payment.AmountCents,
			"currency":   payment.Currency,
			"provider":   payment.Provider,
		}))
		s.sink.Emit(ctx, domain.NewEvent(domain.EventIntentSucceeded, intentPayload(intent)))
	}
	return &CaptureResult{Payment: payment, Intent: intent}, nil
}

type RefundInput struct {
	AmountCents int64
	Reason      string
	Gateway     string
}

// Refund issues a refund at the gateway, then transactionally creates the
// PaymentRefund child and flips the locked payment to REFUNDED. A duplicate
// provider refund id short-circuits to success.
func (s *PaymentService) Refund(ctx context.Context, paymentID uint, in RefundInput) (*models.PaymentRefund, error) {
	payment, err := s.store.PaymentByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.ProviderPaymentID == nil || *payment.ProviderPaymentID == "" {
		return nil, ErrNotRefundable
	}
	driver, err := s.driverFor(in.Gateway, payment.Provider)
	if err != nil {
		return nil, err
	}
	amount := in.AmountCents
	if amount == 0 {
		amount = payment.AmountCents
	}
	resp, err := driver.RefundPayment(ctx, gateway.RefundRequest{
		ProviderPaymentID: *payment.ProviderPaymentID,
		AmountCents:       amount,
		Currency:          payment.Currency,
		Reason:            in.Reason,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	refund := &models.PaymentRefund{
		AmountCents:      resp.AmountCents,
		Currency:         payment.Currency,
		Status:           domain.MapRefundStatus(resp.Status),
		Reason:           in.Reason,
		Provider:         payment.Provider,
		ProviderRefundID: resp.ProviderRefundID,
		ProcessedAt:      &now,
	}
	err = s.store.AddRefund(ctx, payment.ID, refund, func(p *models.Payment) error {
		p.Status = domain.PaymentRefunded
		p.RefundedAt = &now
		p.Metadata = domain.MergeJSON(p.Metadata, domain.Metadata(resp.Raw))
		return nil
	})
	if errors.Is(err, repository.ErrDuplicateRefund) {
		s.logger.Info("refund already recorded",
			zap.Uint("payment_id", payment.ID),
			zap.String("provider_refund_id", resp.ProviderRefundID),
		)
		return refund, nil
	}
	if err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, domain.NewEvent(domain.EventPaymentRefunded, map[string]any{
		"payment_id": payment.ID,
		"refund_id":  refund.ID,
		"amount":     refund.AmountCents,
		"currency":   refund.Currency,
	}))
	return refund, nil
}

// driverFor resolves the explicit gateway override, falling back to the
// provider recorded on the aggregate.
func (s *PaymentService) driverFor(override, provider string) (gateway.Driver, error) {
	name := override
	if name == "" {
		name = provider
	}
	return s.gateways.Driver(name)
}

func intentPayload(intent *models.PaymentIntent) map[string]any {
	return map[string]any{
		"intent_id":  intent.ID,
		"payment_id": intent.PaymentID,
		"provider":   intent.Provider,
		"status":     string(intent.Status),
	}
}

// NotFound reports a missing-record error from any store lookup.
func NotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
