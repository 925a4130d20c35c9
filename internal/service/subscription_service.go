package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"velour/internal/domain"
	"velour/internal/events"
	"velour/internal/models"
	"velour/pkg/gateway"
)

// SubscriptionStore is what the subscription orchestrator needs from
// persistence.
type SubscriptionStore interface {
	Create(ctx context.Context, s *models.PaymentSubscription) error
	ByID(ctx context.Context, id uint) (*models.PaymentSubscription, error)
	ByProviderRef(ctx context.Context, provider, ref string) (*models.PaymentSubscription, error)
	UpdateLocked(ctx context.Context, id uint, mutate func(s *models.PaymentSubscription) error) (*models.PaymentSubscription, error)
}

// PlanStore resolves subscription plans.
type PlanStore interface {
	PlanByID(ctx context.Context, id uint) (*models.SubscriptionPlan, error)
}

// SubscriptionService owns the PaymentSubscription state machine and the
// renewal cadence arithmetic.
type SubscriptionService struct {
	store    SubscriptionStore
	plans    PlanStore
	gateways *gateway.Registry
	sink     events.Sink
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubscriptionService(store SubscriptionStore, plans PlanStore, gateways *gateway.Registry, sink events.Sink, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		store:    store,
		plans:    plans,
		gateways: gateways,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

type CreateSubscriptionInput struct {
	SubscriberID    uint
	CreatorID       uint
	PlanID          *uint
	PaymentMethodID *uint
	MethodToken     string
	AmountCents     int64
	Currency        string
	Interval        string
	IntervalCount   int
	TrialDays       int
	Gateway         string
	Metadata        domain.Metadata
}

// Create starts a recurring subscription. The first renewal boundary is
// anchored at trial end when a trial applies, otherwise at now.
func (s *SubscriptionService) Create(ctx context.Context, in CreateSubscriptionInput) (*models.PaymentSubscription, error) {
	if in.PlanID != nil && s.plans != nil {
		plan, err := s.plans.PlanByID(ctx, *in.PlanID)
		if err != nil {
			return nil, err
		}
		if in.AmountCents == 0 {
			in.AmountCents = plan.AmountCents
		}
		if in.Currency == "" {
			in.Currency = plan.Currency
		}
		if in.Interval == "" {
			in.Interval = plan.Interval
			in.IntervalCount = plan.IntervalCount
		}
		if in.TrialDays == 0 {
			in.TrialDays = plan.TrialDays
		}
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if in.Interval == "" {
		in.Interval = domain.IntervalMonthly
	}
	if in.IntervalCount < 1 {
		in.IntervalCount = 1
	}

	driver, err := s.gateways.SubscriptionDriver(in.Gateway)
	if err != nil {
		return nil, err
	}
	resp, err := driver.CreateSubscription(ctx, gateway.CreateSubscriptionRequest{
		SubscriberID:  in.SubscriberID,
		CreatorID:     in.CreatorID,
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		Interval:      in.Interval,
		IntervalCount: in.IntervalCount,
		TrialDays:     in.TrialDays,
		MethodToken:   in.MethodToken,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	var trialEnd *time.Time
	anchor := now
	if in.TrialDays > 0 {
		t := now.AddDate(0, 0, in.TrialDays)
		trialEnd = &t
		anchor = t
	}
	endsAt := domain.NextPeriodEnd(in.Interval, in.IntervalCount, anchor)

	sub := &models.PaymentSubscription{
		SubscriberID:           in.SubscriberID,
		CreatorID:              in.CreatorID,
		PlanID:                 in.PlanID,
		PaymentMethodID:        in.PaymentMethodID,
		Status:                 domain.MapSubscriptionStatus(resp.Status),
		Provider:               resp.Provider,
		ProviderSubscriptionID: resp.ProviderSubscriptionID,
		AutoRenew:              true,
		AmountCents:            in.AmountCents,
		Currency:               in.Currency,
		Interval:               in.Interval,
		IntervalCount:          in.IntervalCount,
		TrialEndsAt:            trialEnd,
		StartsAt:               now,
		EndsAt:                 &endsAt,
		Metadata:               in.Metadata.ToJSON(),
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionStarted, subPayload(sub)))
	s.logger.Info("subscription started",
		zap.Uint("subscription_id", sub.ID),
		zap.Uint("subscriber_id", sub.SubscriberID),
		zap.Uint("creator_id", sub.CreatorID),
		zap.String("status", string(sub.Status)),
	)
	return sub, nil
}

// Renew advances the subscription into a new paid period. EndsAt is replaced,
// never extended, and always lands strictly after the previous period end.
// Idempotent landing point for scheduled renewals and payment webhooks alike.
func (s *SubscriptionService) Renew(ctx context.Context, id uint, periodStart, periodEnd *time.Time) (*models.PaymentSubscription, error) {
	sub, err := s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		start := s.now()
		if periodStart != nil {
			start = *periodStart
		}
		end := domain.NextPeriodEnd(sub.Interval, sub.IntervalCount, start)
		if periodEnd != nil {
			end = *periodEnd
		}
		// forward progress: a renewal anchored before the current boundary
		// re-anchors at that boundary instead of rewinding it
		if sub.EndsAt != nil && !end.After(*sub.EndsAt) {
			end = domain.NextPeriodEnd(sub.Interval, sub.IntervalCount, *sub.EndsAt)
		}
		sub.Status = domain.SubscriptionActive
		sub.StartsAt = start
		sub.EndsAt = &end
		sub.GraceEndsAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionRenewed, subPayload(sub)))
	return sub, nil
}

// MarkGrace records a bounded retry window after a failed renewal. Grace
// never ends before the paid period does.
func (s *SubscriptionService) MarkGrace(ctx context.Context, id uint, graceEndsAt time.Time) (*models.PaymentSubscription, error) {
	sub, err := s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		if sub.EndsAt != nil && graceEndsAt.Before(*sub.EndsAt) {
			graceEndsAt = *sub.EndsAt
		}
		sub.Status = domain.SubscriptionGrace
		sub.GraceEndsAt = &graceEndsAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionGrace, subPayload(sub)))
	return sub, nil
}

// Expire terminalizes the subscription.
func (s *SubscriptionService) Expire(ctx context.Context, id uint) (*models.PaymentSubscription, error) {
	sub, err := s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		now := s.now()
		sub.Status = domain.SubscriptionExpired
		sub.EndsAt = &now
		sub.AutoRenew = false
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionExpired, subPayload(sub)))
	return sub, nil
}

type CancelSubscriptionInput struct {
	Immediate bool
	Reason    string
	Gateway   string
}

// Cancel stops the subscription. Immediate cancellation terminalizes now;
// otherwise the subscription simply stops renewing and lapses at period end.
func (s *SubscriptionService) Cancel(ctx context.Context, id uint, in CancelSubscriptionInput) (*models.PaymentSubscription, error) {
	sub, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	driver, err := s.subscriptionDriverFor(in.Gateway, sub.Provider)
	if err != nil {
		return nil, err
	}
	if err := driver.CancelSubscription(ctx, sub.ProviderSubscriptionID, in.Immediate); err != nil {
		return nil, err
	}

	sub, err = s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		now := s.now()
		sub.AutoRenew = false
		sub.CancelReason = in.Reason
		sub.CancelledAt = &now
		sub.Metadata = domain.MergeJSON(sub.Metadata, domain.Metadata{"cancel_reason": in.Reason})
		if in.Immediate {
			sub.Status = domain.SubscriptionCancelled
			sub.EndsAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionCancelled, subPayload(sub)))
	return sub, nil
}

// Resume reactivates a subscription that was pending cancellation or in
// grace. Modeled as a renewal for downstream consumers.
func (s *SubscriptionService) Resume(ctx context.Context, id uint, gatewayName string) (*models.PaymentSubscription, error) {
	sub, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	driver, err := s.subscriptionDriverFor(gatewayName, sub.Provider)
	if err != nil {
		return nil, err
	}
	if err := driver.ResumeSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
		return nil, err
	}

	sub, err = s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		sub.Status = domain.SubscriptionActive
		sub.AutoRenew = true
		sub.GraceEndsAt = nil
		sub.CancelledAt = nil
		sub.CancelReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionRenewed, subPayload(sub)))
	return sub, nil
}

type SwapSubscriptionInput struct {
	PlanID        *uint
	AmountCents   int64
	Currency      string
	Interval      string
	IntervalCount int
	Gateway       string
}

// Swap moves the subscription onto a different plan in place.
func (s *SubscriptionService) Swap(ctx context.Context, id uint, in SwapSubscriptionInput) (*models.PaymentSubscription, error) {
	sub, err := s.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	planRef := ""
	if in.PlanID != nil && s.plans != nil {
		plan, err := s.plans.PlanByID(ctx, *in.PlanID)
		if err != nil {
			return nil, err
		}
		planRef = plan.Name
		if in.AmountCents == 0 {
			in.AmountCents = plan.AmountCents
		}
		if in.Currency == "" {
			in.Currency = plan.Currency
		}
		if in.Interval == "" {
			in.Interval = plan.Interval
			in.IntervalCount = plan.IntervalCount
		}
	}
	driver, err := s.subscriptionDriverFor(in.Gateway, sub.Provider)
	if err != nil {
		return nil, err
	}
	if _, err := driver.SwapSubscription(ctx, sub.ProviderSubscriptionID, gateway.SwapSubscriptionRequest{
		AmountCents:   in.AmountCents,
		Currency:      in.Currency,
		Interval:      in.Interval,
		IntervalCount: in.IntervalCount,
		PlanRef:       planRef,
	}); err != nil {
		return nil, err
	}

	sub, err = s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		if in.PlanID != nil {
			sub.PlanID = in.PlanID
		}
		if in.AmountCents > 0 {
			sub.AmountCents = in.AmountCents
		}
		if in.Currency != "" {
			sub.Currency = in.Currency
		}
		if in.Interval != "" {
			sub.Interval = in.Interval
			if in.IntervalCount > 0 {
				sub.IntervalCount = in.IntervalCount
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionRenewed, subPayload(sub)))
	return sub, nil
}

// RecordSuccessfulPayment is the webhook bridge: a successful renewal charge
// renews the subscription anchored at the capture time.
func (s *SubscriptionService) RecordSuccessfulPayment(ctx context.Context, id uint, capturedAt time.Time) (*models.PaymentSubscription, error) {
	return s.Renew(ctx, id, &capturedAt, nil)
}

// RecordFailedPayment is the webhook bridge for a failed renewal charge.
func (s *SubscriptionService) RecordFailedPayment(ctx context.Context, id uint, reason string) (*models.PaymentSubscription, error) {
	sub, err := s.store.UpdateLocked(ctx, id, func(sub *models.PaymentSubscription) error {
		sub.Status = domain.SubscriptionPastDue
		sub.Metadata = domain.MergeJSON(sub.Metadata, domain.Metadata{"last_payment_failure": reason})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.sink.Emit(ctx, domain.NewEvent(domain.EventSubscriptionPayFailed, map[string]any{
		"subscription_id": sub.ID,
		"reason":          reason,
	}))
	return sub, nil
}

// BySubscriptionProviderRef resolves a subscription from a webhook reference.
func (s *SubscriptionService) BySubscriptionProviderRef(ctx context.Context, provider, ref string) (*models.PaymentSubscription, error) {
	return s.store.ByProviderRef(ctx, provider, ref)
}

func (s *SubscriptionService) subscriptionDriverFor(override, provider string) (gateway.SubscriptionDriver, error) {
	name := override
	if name == "" {
		name = provider
	}
	return s.gateways.SubscriptionDriver(name)
}

func subPayload(sub *models.PaymentSubscription) map[string]any {
	out := map[string]any{
		"subscription_id": sub.ID,
		"subscriber_id":   sub.SubscriberID,
		"creator_id":      sub.CreatorID,
		"status":          string(sub.Status),
		"auto_renew":      sub.AutoRenew,
	}
	if sub.EndsAt != nil {
		out["ends_at"] = sub.EndsAt
	}
	return out
}
