package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"velour/internal/domain"
	"velour/internal/models"
)

type PaymentMethodRepository struct {
	db *gorm.DB
}

func NewPaymentMethodRepository(db *gorm.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) Create(ctx context.Context, m *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *PaymentMethodRepository) ByID(ctx context.Context, id uint) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ByUserAndToken is the vault dedup lookup.
func (r *PaymentMethodRepository) ByUserAndToken(ctx context.Context, userID uint, provider, providerMethodID string) (*models.PaymentMethod, error) {
	var m models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND provider_method_id = ? AND status = ?",
			userID, provider, providerMethodID, domain.MethodActive).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PaymentMethodRepository) ActiveByUser(ctx context.Context, userID uint) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.MethodActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *PaymentMethodRepository) CountActive(ctx context.Context, userID uint) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.PaymentMethod{}).
		Where("user_id = ? AND status = ?", userID, domain.MethodActive).
		Count(&cnt).Error
	return cnt, err
}

// SetDefault clears every default flag for the user and sets the new one in
// a single transaction scoped by user id, so the one-default invariant holds
// even under racing calls.
func (r *PaymentMethodRepository) SetDefault(ctx context.Context, userID, methodID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PaymentMethod{}).
			Where("user_id = ? AND is_default = ?", userID, true).
			Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.PaymentMethod{}).
			Where("id = ? AND user_id = ?", methodID, userID).
			Update("is_default", true).Error
	})
}

// RemoveAndPromote soft-removes the method; when it was the default, the
// remaining active method with the lowest id is promoted.
func (r *PaymentMethodRepository) RemoveAndPromote(ctx context.Context, m *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wasDefault := m.IsDefault
		if err := tx.Model(&models.PaymentMethod{}).
			Where("id = ?", m.ID).
			Updates(map[string]any{"status": domain.MethodRemoved, "is_default": false}).Error; err != nil {
			return err
		}
		if !wasDefault {
			return nil
		}
		var next models.PaymentMethod
		err := tx.Where("user_id = ? AND status = ? AND id <> ?", m.UserID, domain.MethodActive, m.ID).
			Order("id ASC").
			First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&models.PaymentMethod{}).
			Where("id = ?", next.ID).
			Update("is_default", true).Error
	})
}
