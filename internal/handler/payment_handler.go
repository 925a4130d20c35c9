package handler

import (
	"net/http"

	"velour/internal/domain"
	"velour/internal/middleware"
	"velour/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	payments *service.PaymentService
	store    service.PaymentStore
}

func NewPaymentHandler(payments *service.PaymentService, store service.PaymentStore) *PaymentHandler {
	return &PaymentHandler{payments: payments, store: store}
}

type createIntentRequest struct {
	PayeeID     uint            `json:"payee_id" binding:"required"`
	PayableKind string          `json:"payable_kind" binding:"required"`
	PayableID   uint            `json:"payable_id" binding:"required"`
	AmountCents int64           `json:"amount_cents" binding:"required,gt=0"`
	FeeCents    int64           `json:"fee_cents"`
	Currency    string          `json:"currency"`
	Method      string          `json:"method"`
	MethodToken string          `json:"method_token"`
	Description string          `json:"description"`
	Gateway     string          `json:"gateway"`
	Metadata    domain.Metadata `json:"metadata"`
}

// CreateIntent opens a payment intent for the authenticated payer.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	res, err := h.payments.CreateIntent(c.Request.Context(), service.CreateIntentInput{
		PayerID:     middleware.GetUserID(c),
		PayeeID:     req.PayeeID,
		Payable:     domain.PayableRef{Kind: domain.PayableKind(req.PayableKind), ID: req.PayableID},
		AmountCents: req.AmountCents,
		FeeCents:    req.FeeCents,
		Currency:    req.Currency,
		Method:      req.Method,
		MethodToken: req.MethodToken,
		Description: req.Description,
		Gateway:     req.Gateway,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"payment":       res.Payment,
		"intent":        res.Intent,
		"client_secret": res.Intent.ClientSecret,
	})
}

type intentActionRequest struct {
	Gateway string         `json:"gateway"`
	Options map[string]any `json:"options"`
}

// ConfirmIntent confirms the intent with the gateway.
func (h *PaymentHandler) ConfirmIntent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req intentActionRequest
	_ = c.ShouldBindJSON(&req)
	if !h.ownsIntent(c, id) {
		return
	}
	intent, err := h.payments.ConfirmIntent(c.Request.Context(), id, req.Options, req.Gateway)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": intent})
}

// CancelIntent cancels the intent and its pending payment.
func (h *PaymentHandler) CancelIntent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req intentActionRequest
	_ = c.ShouldBindJSON(&req)
	if !h.ownsIntent(c, id) {
		return
	}
	intent, err := h.payments.CancelIntent(c.Request.Context(), id, req.Options, req.Gateway)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"intent": intent})
}

type captureRequest struct {
	AmountCents     int64  `json:"amount_cents"`
	MethodToken     string `json:"method_token"`
	PaymentMethodID *uint  `json:"payment_method_id"`
	Gateway         string `json:"gateway"`
}

// Capture finalizes the intent into a charge.
func (h *PaymentHandler) Capture(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req captureRequest
	_ = c.ShouldBindJSON(&req)
	if !h.ownsIntent(c, id) {
		return
	}
	res, err := h.payments.Capture(c.Request.Context(), id, service.CaptureInput{
		AmountCents:     req.AmountCents,
		MethodToken:     req.MethodToken,
		PaymentMethodID: req.PaymentMethodID,
		Gateway:         req.Gateway,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.RecordPaymentProcessed(string(res.Payment.Status))
	c.JSON(http.StatusOK, gin.H{"payment": res.Payment, "intent": res.Intent})
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
	Gateway     string `json:"gateway"`
}

// Refund issues a refund on a captured payment. Admin only; route-guarded.
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req refundRequest
	_ = c.ShouldBindJSON(&req)
	refund, err := h.payments.Refund(c.Request.Context(), id, service.RefundInput{
		AmountCents: req.AmountCents,
		Reason:      req.Reason,
		Gateway:     req.Gateway,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"refund": refund})
}

// GetPayment returns one payment visible to its payer or payee.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	p, err := h.store.PaymentByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	if p.PayerID != userID && p.PayeeID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": p})
}

// ownsIntent rejects intent operations from anyone but the paying user.
func (h *PaymentHandler) ownsIntent(c *gin.Context, intentID uint) bool {
	intent, err := h.store.IntentByID(c.Request.Context(), intentID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if intent.PayerID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}
