package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"velour/internal/domain"
)

// PaymentSubscription is the recurring relationship between a subscriber and
// a creator. EndsAt is always the end of the current paid period; renewal
// replaces it rather than extending it. Rows are terminalized, never deleted.
type PaymentSubscription struct {
	ID                     uint                      `gorm:"primaryKey" json:"id"`
	SubscriberID           uint                      `gorm:"not null;index:ix_subs_pair,priority:1" json:"subscriber_id"`
	CreatorID              uint                      `gorm:"not null;index:ix_subs_pair,priority:2" json:"creator_id"`
	PlanID                 *uint                     `gorm:"index" json:"plan_id"`
	PaymentMethodID        *uint                     `json:"payment_method_id"`
	Status                 domain.SubscriptionStatus `gorm:"size:20;not null;index" json:"status"`
	Provider               string                    `gorm:"size:64;not null;index:ix_subs_provider_ref,priority:1" json:"provider"`
	ProviderSubscriptionID string                    `gorm:"size:128;index:ix_subs_provider_ref,priority:2" json:"provider_subscription_id"`
	AutoRenew              bool                      `gorm:"not null;default:true" json:"auto_renew"`
	AmountCents            int64                     `gorm:"not null" json:"amount_cents"`
	Currency               string                    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Interval               string                    `gorm:"size:20;not null;default:'monthly'" json:"interval"`
	IntervalCount          int                       `gorm:"not null;default:1" json:"interval_count"`
	TrialEndsAt            *time.Time                `json:"trial_ends_at"`
	StartsAt               time.Time                 `json:"starts_at"`
	EndsAt                 *time.Time                `json:"ends_at"`
	GraceEndsAt            *time.Time                `json:"grace_ends_at"`
	CancelledAt            *time.Time                `json:"cancelled_at"`
	CancelReason           string                    `gorm:"size:255" json:"cancel_reason"`
	Metadata               datatypes.JSON            `gorm:"type:json" json:"metadata"`
	CreatedAt              time.Time                 `json:"created_at"`
	UpdatedAt              time.Time                 `json:"updated_at"`
	DeletedAt              gorm.DeletedAt            `gorm:"index" json:"-"`
}

func (PaymentSubscription) TableName() string { return "payment_subscriptions" }
