package models

import (
	"time"

	"gorm.io/gorm"

	"velour/internal/domain"
)

// PaymentMethod is a vaulted, reusable instrument. Display fields only; raw
// card data never touches this system. At most one active method per user
// carries IsDefault.
type PaymentMethod struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	UserID           uint                `gorm:"not null;index" json:"user_id"`
	Provider         string              `gorm:"size:64;not null" json:"provider"`
	ProviderMethodID string              `gorm:"size:128;not null" json:"provider_method_id"`
	Brand            string              `gorm:"size:32" json:"brand"`
	LastFour         string              `gorm:"size:4" json:"last_four"`
	ExpMonth         int                 `json:"exp_month"`
	ExpYear          int                 `json:"exp_year"`
	Fingerprint      string              `gorm:"size:128;index" json:"-"`
	IsDefault        bool                `gorm:"not null;default:false" json:"is_default"`
	Status           domain.MethodStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
