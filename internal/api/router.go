package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/api/cron"
	v1 "github.com/roomcraft/roomcraft/internal/api/v1"
	"github.com/roomcraft/roomcraft/internal/config"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/rest/middleware"
)

type Handlers struct {
	Health   *v1.HealthHandler
	User     *v1.UserHandler
	Credit   *v1.CreditHandler
	Checkout *v1.CheckoutHandler
	Webhook  *v1.WebhookHandler

	CronSubscription *cron.SubscriptionHandler
	CronCreditPack   *cron.CreditPackHandler
	CronLedger       *cron.LedgerHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Stripe requires POST-only webhook endpoints to answer 405 on other
	// methods rather than 404
	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})

	router.Use(
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, cfg, logger)

	cronGroup := router.Group("/cron", middleware.CronAuthMiddleware(cfg))
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, cfg *config.Configuration, logger *logger.Logger) {
	// Webhook and provisioning routes carry their own verification and do
	// not use bearer auth
	router.POST("/webhooks/stripe", handlers.Webhook.HandleStripeWebhook)
	router.POST("/users/provision", handlers.User.ProvisionUser)

	authenticated := router.Group("", middleware.AuthenticateMiddleware(cfg, logger))
	{
		credits := authenticated.Group("/credits")
		{
			credits.GET("/balance", handlers.Credit.GetBalance)
			credits.POST("/consume", handlers.Credit.ConsumeCredits)
		}

		checkout := authenticated.Group("/checkout")
		{
			checkout.POST("/subscriptions", handlers.Checkout.CreateSubscriptionCheckout)
			checkout.POST("/packs", handlers.Checkout.CreatePackCheckout)
		}

		authenticated.POST("/portal", handlers.Checkout.CreateBillingPortalSession)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("/reset", handlers.CronSubscription.ResetDueSubscriptions)
	}

	trials := router.Group("/trials")
	{
		trials.POST("/expire", handlers.CronSubscription.ExpireDueTrials)
	}

	creditpacks := router.Group("/creditpacks")
	{
		creditpacks.POST("/expire", handlers.CronCreditPack.ExpirePacks)
	}

	ledger := router.Group("/ledger")
	{
		ledger.POST("/reconcile", handlers.CronLedger.ReconcileBalances)
		ledger.POST("/reconcile/:user_id", handlers.CronLedger.ReconcileUserBalance)
	}
}
