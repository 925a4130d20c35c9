package router

import (
	"context"
	"time"

	"velour/config"
	"velour/internal/domain"
	"velour/internal/events"
	"velour/internal/handler"
	"velour/internal/middleware"
	"velour/internal/repository"
	"velour/internal/service"
	"velour/pkg/gateway"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, sink events.Sink, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(100, 60*time.Second)))

	// Repositories
	paymentRepo := repository.NewPaymentRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	methodRepo := repository.NewPaymentMethodRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)
	contentRepo := repository.NewContentRepository(db)

	// Gateways
	registry := gateway.NewRegistry(cfg.Payment.DefaultGateway)
	registry.Register(gateway.NewCCBillDriver(cfg.CCBill.BaseURL, cfg.CCBill.AccountID, cfg.CCBill.AppKey))
	if cfg.Server.Env != "production" {
		registry.Register(gateway.NewStubDriver())
	}

	// Payable lookups the payment core can vouch for
	payables := domain.NewPayableRegistry()
	payables.Register(domain.PayablePost, func(ctx context.Context, id uint) (bool, error) {
		_, err := contentRepo.PostByID(ctx, id)
		if err != nil {
			if service.NotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
	payables.Register(domain.PayableSubscription, func(ctx context.Context, id uint) (bool, error) {
		_, err := subscriptionRepo.ByID(ctx, id)
		if err != nil {
			if service.NotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	})

	// Services
	paymentSvc := service.NewPaymentService(paymentRepo, registry, payables, sink, logger)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, contentRepo, registry, sink, logger)
	methodSvc := service.NewPaymentMethodService(methodRepo, registry, sink, logger)
	entitlementSvc := service.NewEntitlementService(subscriptionRepo, contentRepo)
	processor := service.NewWebhookProcessor(webhookRepo, paymentRepo, subscriptionSvc, sink, logger,
		cfg.Payment.WebhookSecret, cfg.Payment.VerifySignatures)

	// Handlers
	paymentHandler := handler.NewPaymentHandler(paymentSvc, paymentRepo)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc, subscriptionRepo)
	methodHandler := handler.NewPaymentMethodHandler(methodSvc)
	entitlementHandler := handler.NewEntitlementHandler(entitlementSvc)
	webhookHandler := handler.NewWebhookHandler(webhookRepo, processor, logger)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.RequireRole(domain.RoleAdmin)

	r.GET("/metrics", middleware.PrometheusHandler())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	api := r.Group("/api/v1")
	{
		// provider callbacks are unauthenticated; signature-verified instead
		api.POST("/webhooks/:provider", webhookHandler.Receive)

		payments := api.Group("/payments")
		payments.Use(authMw)
		{
			payments.POST("/intents", paymentHandler.CreateIntent)
			payments.POST("/intents/:id/confirm", paymentHandler.ConfirmIntent)
			payments.POST("/intents/:id/cancel", paymentHandler.CancelIntent)
			payments.POST("/intents/:id/capture", paymentHandler.Capture)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.POST("/:id/refund", adminMw, paymentHandler.Refund)
		}

		subs := api.Group("/subscriptions")
		subs.Use(authMw)
		{
			subs.POST("", subscriptionHandler.Create)
			subs.GET("/:id", subscriptionHandler.Get)
			subs.POST("/:id/cancel", subscriptionHandler.Cancel)
			subs.POST("/:id/resume", subscriptionHandler.Resume)
			subs.POST("/:id/swap", subscriptionHandler.Swap)
		}

		methods := api.Group("/payment-methods")
		methods.Use(authMw)
		{
			methods.POST("", methodHandler.Vault)
			methods.GET("", methodHandler.List)
			methods.PATCH("/:id/default", methodHandler.SetDefault)
			methods.DELETE("/:id", methodHandler.Delete)
		}

		entitlements := api.Group("/entitlements")
		entitlements.Use(authMw)
		{
			entitlements.GET("/subscriptions/:creatorId", entitlementHandler.SubscriptionAccess)
			entitlements.GET("/posts/:postId", entitlementHandler.PostAccess)
		}

		admin := api.Group("/admin")
		admin.Use(authMw, adminMw)
		{
			admin.GET("/webhooks/failed", webhookHandler.Failed)
			admin.POST("/webhooks/:id/reprocess", webhookHandler.Reprocess)
		}
	}

	return r
}
