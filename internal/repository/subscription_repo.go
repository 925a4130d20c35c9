package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"velour/internal/domain"
	"velour/internal/models"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, s *models.PaymentSubscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SubscriptionRepository) ByID(ctx context.Context, id uint) (*models.PaymentSubscription, error) {
	var s models.PaymentSubscription
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SubscriptionRepository) ByProviderRef(ctx context.Context, provider, ref string) (*models.PaymentSubscription, error) {
	var s models.PaymentSubscription
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", provider, ref).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateLocked locks the subscription row, applies mutate and saves, in one
// transaction. Renewal, grace, expiry, cancellation and swaps all funnel
// through here so concurrent webhook deliveries serialize per subscription.
func (r *SubscriptionRepository) UpdateLocked(ctx context.Context, id uint, mutate func(s *models.PaymentSubscription) error) (*models.PaymentSubscription, error) {
	var s models.PaymentSubscription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&s, id).Error; err != nil {
			return err
		}
		if err := mutate(&s); err != nil {
			return err
		}
		return tx.Save(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LatestEntitled returns the entitled subscription between subscriber and
// creator with the latest period end, or gorm.ErrRecordNotFound. An open
// grace window entitles even after the paid period has lapsed.
func (r *SubscriptionRepository) LatestEntitled(ctx context.Context, subscriberID, creatorID uint, now time.Time) (*models.PaymentSubscription, error) {
	var s models.PaymentSubscription
	err := r.db.WithContext(ctx).
		Where("subscriber_id = ? AND creator_id = ?", subscriberID, creatorID).
		Where("status IN ?", domain.EntitledSubscriptionStatuses).
		Where("(ends_at IS NULL OR ends_at > ? OR (grace_ends_at IS NOT NULL AND grace_ends_at > ?))", now, now).
		Order("ends_at DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
