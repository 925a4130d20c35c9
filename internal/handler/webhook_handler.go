package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"velour/internal/domain"
	"velour/internal/middleware"
	"velour/internal/models"
	"velour/internal/repository"
	"velour/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type WebhookHandler struct {
	webhooks  *repository.WebhookRepository
	processor *service.WebhookProcessor
	logger    *zap.Logger
}

func NewWebhookHandler(webhooks *repository.WebhookRepository, processor *service.WebhookProcessor, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, processor: processor, logger: logger}
}

// Receive ingests one provider callback. The raw delivery is persisted first;
// once it is on disk the provider gets a 200 no matter what processing says,
// so providers never retry deliveries we already hold.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Param("provider")
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	w := &models.PaymentWebhook{
		Provider:  provider,
		Payload:   datatypes.JSON(body),
		Signature: c.GetHeader("X-Webhook-Signature"),
		Status:    domain.WebhookReceived,
	}
	if err := h.webhooks.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("webhook store failed", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage error"})
		return
	}

	status, err := h.processor.Process(c.Request.Context(), w.ID)
	if err != nil {
		// row-level failure only; the delivery itself is safe on disk
		h.logger.Error("webhook processing error",
			zap.Uint("webhook_id", w.ID),
			zap.String("provider", provider),
			zap.Error(err),
		)
		status = domain.WebhookFailed
	}
	middleware.RecordWebhookProcessed(provider, string(status))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Failed lists recently failed webhooks for operator inspection. Admin only.
func (h *WebhookHandler) Failed(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		since = t
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.webhooks.FailedSince(c.Request.Context(), since, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhooks": rows})
}

// Reprocess re-runs one stored webhook. Admin only; used after a failed
// delivery's root cause is fixed.
func (h *WebhookHandler) Reprocess(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	status, err := h.processor.Process(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}
