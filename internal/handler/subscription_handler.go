package handler

import (
	"net/http"

	"velour/internal/domain"
	"velour/internal/middleware"
	"velour/internal/service"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	subs  *service.SubscriptionService
	store service.SubscriptionStore
}

func NewSubscriptionHandler(subs *service.SubscriptionService, store service.SubscriptionStore) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, store: store}
}

type createSubscriptionRequest struct {
	CreatorID       uint            `json:"creator_id" binding:"required"`
	PlanID          *uint           `json:"plan_id"`
	PaymentMethodID *uint           `json:"payment_method_id"`
	MethodToken     string          `json:"method_token"`
	AmountCents     int64           `json:"amount_cents"`
	Currency        string          `json:"currency"`
	Interval        string          `json:"interval"`
	IntervalCount   int             `json:"interval_count"`
	TrialDays       int             `json:"trial_days"`
	Gateway         string          `json:"gateway"`
	Metadata        domain.Metadata `json:"metadata"`
}

// Create starts a subscription from the authenticated user to a creator.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.subs.Create(c.Request.Context(), service.CreateSubscriptionInput{
		SubscriberID:    middleware.GetUserID(c),
		CreatorID:       req.CreatorID,
		PlanID:          req.PlanID,
		PaymentMethodID: req.PaymentMethodID,
		MethodToken:     req.MethodToken,
		AmountCents:     req.AmountCents,
		Currency:        req.Currency,
		Interval:        req.Interval,
		IntervalCount:   req.IntervalCount,
		TrialDays:       req.TrialDays,
		Gateway:         req.Gateway,
		Metadata:        req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"subscription": sub})
}

type cancelSubscriptionRequest struct {
	Immediate bool   `json:"immediate"`
	Reason    string `json:"reason"`
	Gateway   string `json:"gateway"`
}

// Cancel stops the authenticated user's subscription.
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !h.ownsSubscription(c, id) {
		return
	}
	var req cancelSubscriptionRequest
	_ = c.ShouldBindJSON(&req)
	sub, err := h.subs.Cancel(c.Request.Context(), id, service.CancelSubscriptionInput{
		Immediate: req.Immediate,
		Reason:    req.Reason,
		Gateway:   req.Gateway,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// Resume reactivates a subscription pending cancellation or in grace.
func (h *SubscriptionHandler) Resume(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !h.ownsSubscription(c, id) {
		return
	}
	var req struct {
		Gateway string `json:"gateway"`
	}
	_ = c.ShouldBindJSON(&req)
	sub, err := h.subs.Resume(c.Request.Context(), id, req.Gateway)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

type swapSubscriptionRequest struct {
	PlanID        *uint  `json:"plan_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	Interval      string `json:"interval"`
	IntervalCount int    `json:"interval_count"`
	Gateway       string `json:"gateway"`
}

// Swap moves the subscription onto a different plan.
func (h *SubscriptionHandler) Swap(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if !h.ownsSubscription(c, id) {
		return
	}
	var req swapSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.subs.Swap(c.Request.Context(), id, service.SwapSubscriptionInput{
		PlanID:        req.PlanID,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		Interval:      req.Interval,
		IntervalCount: req.IntervalCount,
		Gateway:       req.Gateway,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// Get returns one subscription visible to its subscriber or creator.
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sub, err := h.store.ByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	userID := middleware.GetUserID(c)
	if sub.SubscriberID != userID && sub.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

func (h *SubscriptionHandler) ownsSubscription(c *gin.Context, id uint) bool {
	sub, err := h.store.ByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return false
	}
	if sub.SubscriberID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}
