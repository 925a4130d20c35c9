package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"velour/internal/models"
)

// PaymentRepository owns Payment, PaymentIntent and PaymentRefund rows. All
// mutations of an existing payment go through a transaction holding a row
// lock on that payment, so concurrent capture/cancel/refund attempts on the
// same payment serialize.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateIntentPair creates the Payment and its PaymentIntent in one
// transaction. Called after the gateway responded; nothing is written when
// the gateway call failed.
func (r *PaymentRepository) CreateIntentPair(ctx context.Context, p *models.Payment, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		intent.PaymentID = p.ID
		return tx.Create(intent).Error
	})
}

func (r *PaymentRepository) IntentByID(ctx context.Context, id uint) (*models.PaymentIntent, error) {
	var in models.PaymentIntent
	if err := r.db.WithContext(ctx).First(&in, id).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

// IntentByPaymentID returns the intent tied to a payment, for webhook-driven
// intent finalization.
func (r *PaymentRepository) IntentByPaymentID(ctx context.Context, paymentID uint) (*models.PaymentIntent, error) {
	var in models.PaymentIntent
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).First(&in).Error
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *PaymentRepository) PaymentByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// PaymentByProviderRef finds the payment a webhook refers to. Returns
// gorm.ErrRecordNotFound when the payment is not yet visible.
func (r *PaymentRepository) PaymentByProviderRef(ctx context.Context, provider, ref string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_payment_id = ?", provider, ref).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveIntent persists intent mutations that do not touch the payment row.
func (r *PaymentRepository) SaveIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}

// UpdateLockedPayment locks the payment row, applies mutate and saves, all in
// one transaction.
func (r *PaymentRepository) UpdateLockedPayment(ctx context.Context, paymentID uint, mutate func(p *models.Payment) error) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, paymentID).Error; err != nil {
			return err
		}
		if err := mutate(&p); err != nil {
			return err
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FinalizeIntent saves the intent and, under the same transaction, locks and
// mutates its parent payment. mutatePayment may be nil when only the intent
// changes.
func (r *PaymentRepository) FinalizeIntent(ctx context.Context, intent *models.PaymentIntent, mutatePayment func(p *models.Payment) error) (*models.Payment, error) {
	var p *models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if mutatePayment != nil {
			var locked models.Payment
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&locked, intent.PaymentID).Error; err != nil {
				return err
			}
			if err := mutatePayment(&locked); err != nil {
				return err
			}
			if err := tx.Save(&locked).Error; err != nil {
				return err
			}
			p = &locked
		}
		return tx.Save(intent).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// AddRefund locks the payment, creates the refund child row and applies the
// payment mutation in one transaction. A unique-key collision on (provider,
// provider_refund_id) yields ErrDuplicateRefund and rolls everything back.
func (r *PaymentRepository) AddRefund(ctx context.Context, paymentID uint, refund *models.PaymentRefund, mutatePayment func(p *models.Payment) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, paymentID).Error; err != nil {
			return err
		}
		refund.PaymentID = p.ID
		if err := tx.Create(refund).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateRefund
			}
			return err
		}
		if mutatePayment != nil {
			if err := mutatePayment(&p); err != nil {
				return err
			}
			if err := tx.Save(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// RefundExists reports whether a refund with the given provider reference was
// already recorded.
func (r *PaymentRepository) RefundExists(ctx context.Context, provider, providerRefundID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.PaymentRefund{}).
		Where("provider = ? AND provider_refund_id = ?", provider, providerRefundID).
		Count(&cnt).Error
	return cnt > 0, err
}
