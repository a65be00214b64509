package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ashu640/ecommerce-backend/api/routes"
	"github.com/ashu640/ecommerce-backend/internal/address"
	"github.com/ashu640/ecommerce-backend/internal/cart"
	"github.com/ashu640/ecommerce-backend/internal/checkout"
	"github.com/ashu640/ecommerce-backend/internal/notifications"
	"github.com/ashu640/ecommerce-backend/internal/orders"
	"github.com/ashu640/ecommerce-backend/internal/products"
	"github.com/ashu640/ecommerce-backend/internal/users"
	stripewebhook "github.com/ashu640/ecommerce-backend/internal/webhooks/stripe"
	"github.com/ashu640/ecommerce-backend/pkg/config"
	"github.com/ashu640/ecommerce-backend/pkg/db"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
	"github.com/ashu640/ecommerce-backend/pkg/mail"
	"github.com/ashu640/ecommerce-backend/pkg/metrics"
	"github.com/ashu640/ecommerce-backend/pkg/migrate"
	"github.com/ashu640/ecommerce-backend/pkg/redis"
	"github.com/ashu640/ecommerce-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	cartRepo := cart.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	addressRepo := address.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())

	sender, err := mail.NewSendgridSender(cfg.Sendgrid)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail sender", err)
		os.Exit(1)
	}
	recipients, err := notifications.NewUserRecipientResolver(userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create recipient resolver", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewDispatcher(sender, recipients, logg, checkoutMetrics, cfg.Sendgrid.OpsMailbox)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:        dbClient,
		CartRepo:  cartRepo,
		Products:  productRepo,
		Addresses: addressRepo,
		Orders:    orderRepo,
		Gateway:   checkout.NewPaymentGateway(stripeClient),
		Notifier:  dispatcher,
		Metrics:   checkoutMetrics,
		Logger:    logg,
		Stripe:    cfg.Stripe,
		Frontend:  cfg.App.FrontendURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo, dbClient, productRepo, dispatcher)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	eventGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.EventGuardTTL, "stripe_events")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook event guard", err)
		os.Exit(1)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Checkout: checkoutService,
		Guard:    eventGuard,
		Metrics:  checkoutMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Stripe:        stripeClient,
			Registry:      registry,
			Cart:          cartService,
			Checkout:      checkoutService,
			Orders:        ordersService,
			StripeWebhook: webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
