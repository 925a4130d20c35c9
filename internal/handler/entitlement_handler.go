package handler

import (
	"net/http"

	"velour/internal/middleware"
	"velour/internal/service"

	"github.com/gin-gonic/gin"
)

type EntitlementHandler struct {
	entitlements *service.EntitlementService
}

func NewEntitlementHandler(entitlements *service.EntitlementService) *EntitlementHandler {
	return &EntitlementHandler{entitlements: entitlements}
}

// SubscriptionAccess reports whether the user holds an entitled subscription
// to a creator.
func (h *EntitlementHandler) SubscriptionAccess(c *gin.Context) {
	creatorID, ok := parseID(c, "creatorId")
	if !ok {
		return
	}
	sub, err := h.entitlements.ActiveSubscription(c.Request.Context(), middleware.GetUserID(c), creatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	if sub == nil {
		c.JSON(http.StatusOK, gin.H{"entitled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entitled": true,
		"status":   sub.Status,
		"ends_at":  sub.EndsAt,
	})
}

// PostAccess reports whether the user may view a post.
func (h *EntitlementHandler) PostAccess(c *gin.Context) {
	postID, ok := parseID(c, "postId")
	if !ok {
		return
	}
	unlocked, err := h.entitlements.HasUnlockedPost(c.Request.Context(), middleware.GetUserID(c), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entitled": unlocked})
}
