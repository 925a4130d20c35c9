package handler

import (
	"net/http"

	"velour/internal/middleware"
	"velour/internal/service"
	"velour/pkg/gateway"

	"github.com/gin-gonic/gin"
)

type PaymentMethodHandler struct {
	methods *service.PaymentMethodService
}

func NewPaymentMethodHandler(methods *service.PaymentMethodService) *PaymentMethodHandler {
	return &PaymentMethodHandler{methods: methods}
}

type vaultRequest struct {
	ProviderTokenID string `json:"provider_token_id" binding:"required"`
	Gateway         string `json:"gateway"`
	Brand           string `json:"brand"`
	LastFour        string `json:"last_four"`
	ExpMonth        int    `json:"exp_month"`
	ExpYear         int    `json:"exp_year"`
	Fingerprint     string `json:"fingerprint"`
}

// Vault stores a tokenized payment instrument for the authenticated user.
// Only the provider token crosses this boundary, never PAN data.
func (h *PaymentMethodHandler) Vault(c *gin.Context) {
	var req vaultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var card *gateway.CardDetails
	if req.LastFour != "" {
		card = &gateway.CardDetails{
			Brand:       req.Brand,
			LastFour:    req.LastFour,
			ExpMonth:    req.ExpMonth,
			ExpYear:     req.ExpYear,
			Fingerprint: req.Fingerprint,
		}
	}
	m, err := h.methods.Vault(c.Request.Context(), service.VaultInput{
		UserID:          middleware.GetUserID(c),
		ProviderTokenID: req.ProviderTokenID,
		Gateway:         req.Gateway,
		Card:            card,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"method": m})
}

// List returns the user's active methods.
func (h *PaymentMethodHandler) List(c *gin.Context) {
	methods, err := h.methods.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// SetDefault marks one method as the user's default.
func (h *PaymentMethodHandler) SetDefault(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	m, err := h.methods.SetDefault(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"method": m})
}

// Delete removes a vaulted method.
func (h *PaymentMethodHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.methods.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
