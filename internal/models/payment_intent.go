package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"velour/internal/domain"
)

// PaymentIntent is the pre-capture negotiation record, created together with
// its parent Payment during checkout initiation.
type PaymentIntent struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	PaymentID        uint                `gorm:"not null;uniqueIndex" json:"payment_id"`
	PayerID          uint                `gorm:"not null;index" json:"payer_id"`
	PayeeID          uint                `gorm:"not null" json:"payee_id"`
	PayableKind      domain.PayableKind  `gorm:"size:32;not null" json:"payable_kind"`
	PayableID        uint                `gorm:"not null" json:"payable_id"`
	AmountCents      int64               `gorm:"not null" json:"amount_cents"`
	Currency         string              `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Provider         string              `gorm:"size:64;not null;index:ix_intents_provider_ref,priority:1" json:"provider"`
	ProviderIntentID string              `gorm:"size:128;index:ix_intents_provider_ref,priority:2" json:"provider_intent_id"`
	ClientSecret     string              `gorm:"size:255" json:"-"`
	Status           domain.IntentStatus `gorm:"size:24;not null;index" json:"status"`
	ConfirmedAt      *time.Time          `json:"confirmed_at"`
	CancelledAt      *time.Time          `json:"cancelled_at"`
	Metadata         datatypes.JSON      `gorm:"type:json" json:"metadata"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }
