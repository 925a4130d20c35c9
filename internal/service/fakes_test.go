package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"velour/internal/models"
	"velour/internal/repository"
	"velour/pkg/gateway"
)

// In-memory store fakes mirroring the repository contracts, including the
// duplicate-key signals the services rely on.

type fakePaymentStore struct {
	payments map[uint]*models.Payment
	intents  map[uint]*models.PaymentIntent
	refunds  []*models.PaymentRefund
	nextID   uint

	lockErr error // consumed by the next UpdateLockedPayment call
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments: map[uint]*models.Payment{},
		intents:  map[uint]*models.PaymentIntent{},
	}
}

func (f *fakePaymentStore) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakePaymentStore) CreateIntentPair(ctx context.Context, p *models.Payment, intent *models.PaymentIntent) error {
	p.ID = f.id()
	intent.ID = f.id()
	intent.PaymentID = p.ID
	f.payments[p.ID] = p
	f.intents[intent.ID] = intent
	return nil
}

func (f *fakePaymentStore) IntentByID(ctx context.Context, id uint) (*models.PaymentIntent, error) {
	in, ok := f.intents[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *in
	return &cp, nil
}

func (f *fakePaymentStore) IntentByPaymentID(ctx context.Context, paymentID uint) (*models.PaymentIntent, error) {
	for _, in := range f.intents {
		if in.PaymentID == paymentID {
			cp := *in
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentStore) PaymentByID(ctx context.Context, id uint) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) PaymentByProviderRef(ctx context.Context, provider, ref string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.Provider == provider && p.ProviderPaymentID != nil && *p.ProviderPaymentID == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentStore) SaveIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if _, ok := f.intents[intent.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *intent
	f.intents[intent.ID] = &cp
	return nil
}

func (f *fakePaymentStore) UpdateLockedPayment(ctx context.Context, paymentID uint, mutate func(p *models.Payment) error) (*models.Payment, error) {
	if f.lockErr != nil {
		err := f.lockErr
		f.lockErr = nil
		return nil, err
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) FinalizeIntent(ctx context.Context, intent *models.PaymentIntent, mutatePayment func(p *models.Payment) error) (*models.Payment, error) {
	if err := f.SaveIntent(ctx, intent); err != nil {
		return nil, err
	}
	if mutatePayment == nil {
		return f.PaymentByID(ctx, intent.PaymentID)
	}
	return f.UpdateLockedPayment(ctx, intent.PaymentID, mutatePayment)
}

func (f *fakePaymentStore) AddRefund(ctx context.Context, paymentID uint, refund *models.PaymentRefund, mutatePayment func(p *models.Payment) error) error {
	for _, r := range f.refunds {
		if r.Provider == refund.Provider && r.ProviderRefundID == refund.ProviderRefundID {
			return repository.ErrDuplicateRefund
		}
	}
	p, ok := f.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if mutatePayment != nil {
		if err := mutatePayment(p); err != nil {
			return err
		}
	}
	refund.ID = f.id()
	refund.PaymentID = paymentID
	f.refunds = append(f.refunds, refund)
	return nil
}

func (f *fakePaymentStore) RefundExists(ctx context.Context, provider, providerRefundID string) (bool, error) {
	for _, r := range f.refunds {
		if r.Provider == provider && r.ProviderRefundID == providerRefundID {
			return true, nil
		}
	}
	return false, nil
}

type fakeSubscriptionStore struct {
	subs   map[uint]*models.PaymentSubscription
	nextID uint
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: map[uint]*models.PaymentSubscription{}}
}

func (f *fakeSubscriptionStore) Create(ctx context.Context, s *models.PaymentSubscription) error {
	f.nextID++
	s.ID = f.nextID
	f.subs[s.ID] = s
	return nil
}

func (f *fakeSubscriptionStore) ByID(ctx context.Context, id uint) (*models.PaymentSubscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubscriptionStore) ByProviderRef(ctx context.Context, provider, ref string) (*models.PaymentSubscription, error) {
	for _, s := range f.subs {
		if s.Provider == provider && s.ProviderSubscriptionID == ref {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubscriptionStore) UpdateLocked(ctx context.Context, id uint, mutate func(s *models.PaymentSubscription) error) (*models.PaymentSubscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if err := mutate(s); err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

type fakePlanStore struct {
	plans map[uint]*models.SubscriptionPlan
}

func (f *fakePlanStore) PlanByID(ctx context.Context, id uint) (*models.SubscriptionPlan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

type fakeMethodStore struct {
	methods map[uint]*models.PaymentMethod
	nextID  uint
}

func newFakeMethodStore() *fakeMethodStore {
	return &fakeMethodStore{methods: map[uint]*models.PaymentMethod{}}
}

func (f *fakeMethodStore) Create(ctx context.Context, m *models.PaymentMethod) error {
	f.nextID++
	m.ID = f.nextID
	f.methods[m.ID] = m
	return nil
}

func (f *fakeMethodStore) ByID(ctx context.Context, id uint) (*models.PaymentMethod, error) {
	m, ok := f.methods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMethodStore) ByUserAndToken(ctx context.Context, userID uint, provider, providerMethodID string) (*models.PaymentMethod, error) {
	for _, m := range f.methods {
		if m.UserID == userID && m.Provider == provider && m.ProviderMethodID == providerMethodID && m.Status == "ACTIVE" {
			cp := *m
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMethodStore) ActiveByUser(ctx context.Context, userID uint) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	for i := uint(1); i <= f.nextID; i++ {
		if m, ok := f.methods[i]; ok && m.UserID == userID && m.Status == "ACTIVE" {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMethodStore) CountActive(ctx context.Context, userID uint) (int64, error) {
	ms, _ := f.ActiveByUser(ctx, userID)
	return int64(len(ms)), nil
}

func (f *fakeMethodStore) SetDefault(ctx context.Context, userID, methodID uint) error {
	if _, ok := f.methods[methodID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, m := range f.methods {
		if m.UserID == userID {
			m.IsDefault = m.ID == methodID
		}
	}
	return nil
}

func (f *fakeMethodStore) RemoveAndPromote(ctx context.Context, m *models.PaymentMethod) error {
	stored, ok := f.methods[m.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	wasDefault := stored.IsDefault
	stored.Status = "REMOVED"
	stored.IsDefault = false
	if wasDefault {
		for i := uint(1); i <= f.nextID; i++ {
			if cand, ok := f.methods[i]; ok && cand.UserID == stored.UserID && cand.Status == "ACTIVE" {
				cand.IsDefault = true
				break
			}
		}
	}
	return nil
}

type fakeWebhookStore struct {
	rows     map[uint]*models.PaymentWebhook
	eventIDs map[string]uint // provider+eventID -> row
	nextID   uint
}

func newFakeWebhookStore() *fakeWebhookStore {
	return &fakeWebhookStore{
		rows:     map[uint]*models.PaymentWebhook{},
		eventIDs: map[string]uint{},
	}
}

func (f *fakeWebhookStore) add(w *models.PaymentWebhook) *models.PaymentWebhook {
	f.nextID++
	w.ID = f.nextID
	f.rows[w.ID] = w
	return w
}

func (f *fakeWebhookStore) ByID(ctx context.Context, id uint) (*models.PaymentWebhook, error) {
	w, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWebhookStore) ClaimEventID(ctx context.Context, w *models.PaymentWebhook, eventID string) error {
	key := w.Provider + "|" + eventID
	if owner, ok := f.eventIDs[key]; ok && owner != w.ID {
		return repository.ErrDuplicateWebhook
	}
	f.eventIDs[key] = w.ID
	w.EventID = &eventID
	f.rows[w.ID].EventID = &eventID
	return nil
}

func (f *fakeWebhookStore) EventClaimant(ctx context.Context, provider, eventID string) (*models.PaymentWebhook, error) {
	id, ok := f.eventIDs[provider+"|"+eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *f.rows[id]
	return &cp, nil
}

func (f *fakeWebhookStore) PriorProcessedExists(ctx context.Context, provider, providerRef string, excludeID uint) (bool, error) {
	if providerRef == "" {
		return false, nil
	}
	for _, w := range f.rows {
		if w.ID != excludeID && w.Provider == provider && w.ProviderRef == providerRef && w.Status == "PROCESSED" {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeWebhookStore) MarkProcessed(ctx context.Context, w *models.PaymentWebhook) error {
	now := time.Now()
	row := f.rows[w.ID]
	row.Status = "PROCESSED"
	row.ProcessedAt = &now
	row.Error = nil
	return nil
}

func (f *fakeWebhookStore) MarkFailed(ctx context.Context, w *models.PaymentWebhook, reason string) error {
	row := f.rows[w.ID]
	row.Status = "FAILED"
	row.Error = &reason
	return nil
}

func (f *fakeWebhookStore) SaveParsed(ctx context.Context, w *models.PaymentWebhook) error {
	row := f.rows[w.ID]
	row.EventName = w.EventName
	row.ProviderRef = w.ProviderRef
	return nil
}

// fakeDriver is a scriptable gateway covering payments, subscriptions and
// token inspection.
type fakeDriver struct {
	name string

	intentStatus  string
	captureStatus string
	refundStatus  string
	subStatus     string

	failWith error

	captureCalls int
	refundCalls  int
	cancelCalls  int
	seq          int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		name:          "faketest",
		intentStatus:  "requires_confirmation",
		captureStatus: "paid",
		refundStatus:  "succeeded",
		subStatus:     "active",
	}
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) ref(prefix string) string {
	d.seq++
	return fmt.Sprintf("%s_%s_%d", d.name, prefix, d.seq)
}

func (d *fakeDriver) CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (gateway.IntentResponse, error) {
	if d.failWith != nil {
		return gateway.IntentResponse{}, d.failWith
	}
	return gateway.IntentResponse{
		Provider:         d.name,
		ProviderIntentID: d.ref("in"),
		ClientSecret:     d.ref("sec"),
		Status:           d.intentStatus,
	}, nil
}

func (d *fakeDriver) ConfirmIntent(ctx context.Context, providerIntentID string, opts map[string]any) (gateway.StatusResponse, error) {
	if d.failWith != nil {
		return gateway.StatusResponse{}, d.failWith
	}
	return gateway.StatusResponse{Status: "succeeded"}, nil
}

func (d *fakeDriver) CancelIntent(ctx context.Context, providerIntentID string, opts map[string]any) (gateway.StatusResponse, error) {
	if d.failWith != nil {
		return gateway.StatusResponse{}, d.failWith
	}
	return gateway.StatusResponse{Status: "cancelled"}, nil
}

func (d *fakeDriver) CapturePayment(ctx context.Context, req gateway.CaptureRequest) (gateway.CaptureResponse, error) {
	d.captureCalls++
	if d.failWith != nil {
		return gateway.CaptureResponse{}, d.failWith
	}
	return gateway.CaptureResponse{
		ProviderPaymentID: d.ref("pay"),
		AmountCents:       req.AmountCents,
		Status:            d.captureStatus,
	}, nil
}

func (d *fakeDriver) RefundPayment(ctx context.Context, req gateway.RefundRequest) (gateway.RefundResponse, error) {
	d.refundCalls++
	if d.failWith != nil {
		return gateway.RefundResponse{}, d.failWith
	}
	return gateway.RefundResponse{
		ProviderRefundID: d.ref("ref"),
		AmountCents:      req.AmountCents,
		Status:           d.refundStatus,
	}, nil
}

func (d *fakeDriver) CreateSubscription(ctx context.Context, req gateway.CreateSubscriptionRequest) (gateway.SubscriptionResponse, error) {
	if d.failWith != nil {
		return gateway.SubscriptionResponse{}, d.failWith
	}
	return gateway.SubscriptionResponse{
		Provider:               d.name,
		ProviderSubscriptionID: d.ref("sub"),
		Status:                 d.subStatus,
	}, nil
}

func (d *fakeDriver) CancelSubscription(ctx context.Context, providerSubscriptionID string, immediate bool) error {
	d.cancelCalls++
	return d.failWith
}

func (d *fakeDriver) ResumeSubscription(ctx context.Context, providerSubscriptionID string) error {
	return d.failWith
}

func (d *fakeDriver) SwapSubscription(ctx context.Context, providerSubscriptionID string, req gateway.SwapSubscriptionRequest) (gateway.SubscriptionResponse, error) {
	if d.failWith != nil {
		return gateway.SubscriptionResponse{}, d.failWith
	}
	return gateway.SubscriptionResponse{
		Provider:               d.name,
		ProviderSubscriptionID: providerSubscriptionID,
		Status:                 d.subStatus,
	}, nil
}

func (d *fakeDriver) TokenDetails(ctx context.Context, providerTokenID string) (gateway.CardDetails, error) {
	if d.failWith != nil {
		return gateway.CardDetails{}, d.failWith
	}
	return gateway.CardDetails{Brand: "visa", LastFour: "4242", ExpMonth: 12, ExpYear: 2030}, nil
}
