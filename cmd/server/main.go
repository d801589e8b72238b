package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/roomcraft/roomcraft/internal/api"
	"github.com/roomcraft/roomcraft/internal/api/cron"
	v1 "github.com/roomcraft/roomcraft/internal/api/v1"
	"github.com/roomcraft/roomcraft/internal/cache"
	"github.com/roomcraft/roomcraft/internal/config"
	stripeintg "github.com/roomcraft/roomcraft/internal/integration/stripe"
	"github.com/roomcraft/roomcraft/internal/logger"
	"github.com/roomcraft/roomcraft/internal/postgres"
	"github.com/roomcraft/roomcraft/internal/repository"
	"github.com/roomcraft/roomcraft/internal/sentry"
	"github.com/roomcraft/roomcraft/internal/service"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// Stripe
			stripeintg.NewClient,

			// Repositories
			repository.NewUserRepository,
			repository.NewSubscriptionRepository,
			repository.NewCreditPackRepository,
			repository.NewLedgerRepository,
			repository.NewCheckoutRepository,
		),
	)

	// Monitoring
	opts = append(opts, sentry.Module())

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewUserService,
			service.NewSubscriptionService,
			service.NewCreditPackService,
			service.NewCreditService,
			service.NewCheckoutService,
			service.NewWebhookService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	stripeClient *stripeintg.Client,
	sentryService *sentry.Service,
	userService service.UserService,
	subscriptionService service.SubscriptionService,
	creditPackService service.CreditPackService,
	creditService service.CreditService,
	checkoutService service.CheckoutService,
	webhookService service.WebhookService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(logger),
		User:     v1.NewUserHandler(userService, logger),
		Credit:   v1.NewCreditHandler(creditService, logger),
		Checkout: v1.NewCheckoutHandler(checkoutService, logger),
		Webhook:  v1.NewWebhookHandler(stripeClient, webhookService, sentryService, logger),

		CronSubscription: cron.NewSubscriptionHandler(subscriptionService, userService, logger),
		CronCreditPack:   cron.NewCreditPackHandler(creditPackService, logger),
		CronLedger:       cron.NewLedgerHandler(creditService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infof("Starting API server on %s", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
