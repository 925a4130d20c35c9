package models

import (
	"time"

	"gorm.io/gorm"

	"velour/internal/domain"
)

// PaymentRefund is a child of Payment. The unique (provider,
// provider_refund_id) index is the dedup key when a refund webhook arrives
// for a refund already issued locally.
type PaymentRefund struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	PaymentID        uint                `gorm:"not null;index" json:"payment_id"`
	AmountCents      int64               `gorm:"not null" json:"amount_cents"`
	Currency         string              `gorm:"size:3;not null" json:"currency"`
	Status           domain.RefundStatus `gorm:"size:20;not null" json:"status"`
	Reason           string              `gorm:"size:255" json:"reason"`
	Provider         string              `gorm:"size:64;not null;uniqueIndex:ux_refunds_provider_ref,priority:1" json:"provider"`
	ProviderRefundID string              `gorm:"size:128;not null;uniqueIndex:ux_refunds_provider_ref,priority:2" json:"provider_refund_id"`
	ProcessedAt      *time.Time          `json:"processed_at"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (PaymentRefund) TableName() string { return "payment_refunds" }
