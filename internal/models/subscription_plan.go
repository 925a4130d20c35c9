package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionPlan is a creator's published recurring offer.
type SubscriptionPlan struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatorID     uint           `gorm:"not null;index" json:"creator_id"`
	Name          string         `gorm:"size:128;not null" json:"name"`
	AmountCents   int64          `gorm:"not null" json:"amount_cents"`
	Currency      string         `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Interval      string         `gorm:"size:20;not null;default:'monthly'" json:"interval"`
	IntervalCount int            `gorm:"not null;default:1" json:"interval_count"`
	TrialDays     int            `gorm:"not null;default:0" json:"trial_days"`
	Active        bool           `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (SubscriptionPlan) TableName() string { return "subscription_plans" }
