package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"velour/internal/domain"
	"velour/internal/models"
)

// ContentRepository serves the entitlement resolver's read side: posts,
// purchases and plans. Read-only; purchases are written by the platform layer.
type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ContentRepository) PlanByID(ctx context.Context, id uint) (*models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UnlockedPurchaseExists reports whether user holds a live purchase of post.
// A purchase whose payment is still settling already unlocks; only refunded
// or expired purchases lose access.
func (r *ContentRepository) UnlockedPurchaseExists(ctx context.Context, postID, userID uint, now time.Time) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.PostPurchase{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Where("status IN ?", []domain.PurchaseStatus{domain.PurchaseCompleted, domain.PurchasePending}).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Count(&cnt).Error
	return cnt > 0, err
}
