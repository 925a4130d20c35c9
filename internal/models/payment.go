package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"velour/internal/domain"
)

// Payment is one money movement from payer to payee. Rows are never deleted;
// terminalized payments stay as the audit trail.
type Payment struct {
	ID                uint                 `gorm:"primaryKey" json:"id"`
	PayerID           uint                 `gorm:"not null;index" json:"payer_id"`
	PayeeID           uint                 `gorm:"not null;index" json:"payee_id"`
	PayableKind       domain.PayableKind   `gorm:"size:32;not null" json:"payable_kind"`
	PayableID         uint                 `gorm:"not null" json:"payable_id"`
	AmountCents       int64                `gorm:"not null" json:"amount_cents"`
	FeeCents          int64                `gorm:"not null;default:0" json:"fee_cents"`
	NetCents          int64                `gorm:"not null" json:"net_cents"`
	Currency          string               `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Method            string               `gorm:"size:32" json:"method"`
	Provider          string               `gorm:"size:64;not null;index:ix_payments_provider_ref,priority:1" json:"provider"`
	ProviderPaymentID *string              `gorm:"size:128;index:ix_payments_provider_ref,priority:2" json:"provider_payment_id"`
	PaymentMethodID   *uint                `gorm:"index" json:"payment_method_id"`
	Status            domain.PaymentStatus `gorm:"size:20;not null;index" json:"status"`
	SucceededAt       *time.Time           `json:"succeeded_at"`
	CapturedAt        *time.Time           `json:"captured_at"`
	RefundedAt        *time.Time           `json:"refunded_at"`
	CancelledAt       *time.Time           `json:"cancelled_at"`
	Metadata          datatypes.JSON       `gorm:"type:json" json:"metadata"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	DeletedAt         gorm.DeletedAt       `gorm:"index" json:"-"`
}

func (Payment) TableName() string { return "payments" }
