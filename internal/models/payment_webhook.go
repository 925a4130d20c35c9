package models

import (
	"time"

	"gorm.io/datatypes"

	"velour/internal/domain"
)

// PaymentWebhook is the append-only ledger of inbound provider callbacks and
// doubles as the idempotency record. EventID is the canonical provider event
// id when the payload carries one; the unique (provider, event_id) index makes
// a duplicate-key error the duplicate-delivery signal. Rows without a
// canonical id keep EventID null and fall back to the ProviderRef scan.
type PaymentWebhook struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	Provider    string               `gorm:"size:64;not null;uniqueIndex:ux_webhooks_provider_event,priority:1" json:"provider"`
	EventName   string               `gorm:"size:128" json:"event_name"`
	EventID     *string              `gorm:"size:128;uniqueIndex:ux_webhooks_provider_event,priority:2" json:"event_id"`
	ProviderRef string               `gorm:"size:128;index" json:"provider_ref"`
	Payload     datatypes.JSON       `gorm:"type:json;not null" json:"payload"`
	Signature   string               `gorm:"size:255" json:"-"`
	Status      domain.WebhookStatus `gorm:"size:20;not null;index" json:"status"`
	Error       *string              `gorm:"size:255" json:"error"`
	ProcessedAt *time.Time           `json:"processed_at"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func (PaymentWebhook) TableName() string { return "payment_webhooks" }
