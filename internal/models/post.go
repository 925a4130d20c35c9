package models

import (
	"time"

	"gorm.io/gorm"

	"velour/internal/domain"
)

// Post is the minimal content record the entitlement resolver needs.
type Post struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	AuthorID   uint           `gorm:"not null;index" json:"author_id"`
	PriceCents int64          `gorm:"not null;default:0" json:"price_cents"`
	Locked     bool           `gorm:"not null;default:false" json:"locked"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Post) TableName() string { return "posts" }

// PostPurchase records a one-off unlock of a post by a user.
type PostPurchase struct {
	ID        uint                  `gorm:"primaryKey" json:"id"`
	PostID    uint                  `gorm:"not null;index:ix_purchases_post_user,priority:1" json:"post_id"`
	UserID    uint                  `gorm:"not null;index:ix_purchases_post_user,priority:2" json:"user_id"`
	PaymentID *uint                 `json:"payment_id"`
	Status    domain.PurchaseStatus `gorm:"size:20;not null;index" json:"status"`
	ExpiresAt *time.Time            `json:"expires_at"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	DeletedAt gorm.DeletedAt        `gorm:"index" json:"-"`
}

func (PostPurchase) TableName() string { return "post_purchases" }
