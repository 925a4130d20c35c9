package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"velour/internal/domain"
	"velour/internal/models"
)

// WebhookRepository owns the append-only payment_webhooks ledger.
type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) Create(ctx context.Context, w *models.PaymentWebhook) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WebhookRepository) ByID(ctx context.Context, id uint) (*models.PaymentWebhook, error) {
	var w models.PaymentWebhook
	if err := r.db.WithContext(ctx).First(&w, id).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// ClaimEventID stamps the canonical event id onto the row. The unique
// (provider, event_id) index turns a concurrent or replayed delivery into a
// duplicate-key error, reported as ErrDuplicateWebhook.
func (r *WebhookRepository) ClaimEventID(ctx context.Context, w *models.PaymentWebhook, eventID string) error {
	err := r.db.WithContext(ctx).Model(w).Update("event_id", eventID).Error
	if isDuplicateKey(err) {
		return ErrDuplicateWebhook
	}
	if err == nil {
		w.EventID = &eventID
	}
	return err
}

// EventClaimant returns the row holding (provider, event_id), letting the
// processor distinguish a replay of a processed delivery from a retry of one
// that failed mid-flight.
func (r *WebhookRepository) EventClaimant(ctx context.Context, provider, eventID string) (*models.PaymentWebhook, error) {
	var w models.PaymentWebhook
	err := r.db.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// PriorProcessedExists is the best-effort fallback scan used when the payload
// carries no canonical event id: any earlier processed row from the same
// provider with the same transaction reference marks this delivery a replay.
func (r *WebhookRepository) PriorProcessedExists(ctx context.Context, provider, providerRef string, excludeID uint) (bool, error) {
	if providerRef == "" {
		return false, nil
	}
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.PaymentWebhook{}).
		Where("provider = ? AND provider_ref = ? AND status = ? AND id <> ?",
			provider, providerRef, domain.WebhookProcessed, excludeID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *WebhookRepository) MarkProcessed(ctx context.Context, w *models.PaymentWebhook) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(w).Updates(map[string]any{
		"status":       domain.WebhookProcessed,
		"processed_at": &now,
		"error":        nil,
	}).Error
}

func (r *WebhookRepository) MarkFailed(ctx context.Context, w *models.PaymentWebhook, reason string) error {
	if len(reason) > 250 {
		reason = reason[:250]
	}
	return r.db.WithContext(ctx).Model(w).Updates(map[string]any{
		"status": domain.WebhookFailed,
		"error":  &reason,
	}).Error
}

// SaveParsed persists the event name and transaction reference extracted
// during processing.
func (r *WebhookRepository) SaveParsed(ctx context.Context, w *models.PaymentWebhook) error {
	return r.db.WithContext(ctx).Model(w).Updates(map[string]any{
		"event_name":   w.EventName,
		"provider_ref": w.ProviderRef,
	}).Error
}

// FailedSince lists failed rows for operator inspection / reprocessing.
func (r *WebhookRepository) FailedSince(ctx context.Context, since time.Time, limit int) ([]models.PaymentWebhook, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []models.PaymentWebhook
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at >= ?", domain.WebhookFailed, since).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
