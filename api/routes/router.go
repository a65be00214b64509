package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashu640/ecommerce-backend/api/controllers"
	webhookcontrollers "github.com/ashu640/ecommerce-backend/api/controllers/webhooks"
	"github.com/ashu640/ecommerce-backend/api/middleware"
	"github.com/ashu640/ecommerce-backend/internal/cart"
	checkoutsvc "github.com/ashu640/ecommerce-backend/internal/checkout"
	"github.com/ashu640/ecommerce-backend/internal/orders"
	stripewebhook "github.com/ashu640/ecommerce-backend/internal/webhooks/stripe"
	"github.com/ashu640/ecommerce-backend/pkg/config"
	"github.com/ashu640/ecommerce-backend/pkg/db"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
	"github.com/ashu640/ecommerce-backend/pkg/redis"
)

// CacheStore is the slice of the redis client the HTTP layer touches.
type CacheStore interface {
	redis.IdempotencyStore
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	Ping(context.Context) error
}

// SigningClient exposes the webhook secret needed to verify push payloads.
type SigningClient interface {
	SigningSecret() string
}

// Deps carries everything the HTTP surface needs. Grouping them beats a
// twelve-argument constructor.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    CacheStore
	Stripe   SigningClient
	Registry *prometheus.Registry

	Cart          cart.Service
	Checkout      checkoutsvc.Service
	Orders        orders.Service
	StripeWebhook *stripewebhook.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.FrontendURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.Stripe, logg))
	})

	verifyPolicy := middleware.NewRateLimitPolicy(
		"verify",
		cfg.Limits.VerifyWindow,
		cfg.Limits.VerifyIPLimit,
		cfg.Limits.VerifySessionLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Cart, logg))
			r.Post("/", controllers.CartAdd(deps.Cart, logg))
			r.Patch("/{itemId}", controllers.CartAdjust(deps.Cart, logg))
			r.Delete("/{itemId}", controllers.CartRemove(deps.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/cod", controllers.OrderCreateCOD(deps.Checkout, logg))
			r.Post("/online", controllers.OrderCreateOnline(deps.Checkout, logg))
			r.With(middleware.RateLimit(verifyPolicy, deps.Redis, logg)).
				Post("/verify", controllers.OrderVerify(deps.Checkout, logg))
			r.Get("/", controllers.OrderListMine(deps.Orders, logg))
			r.Get("/session/{sessionId}", controllers.OrderBySession(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
			r.Get("/stats", controllers.AdminOrderStats(deps.Orders, logg))
			r.Get("/last-update", controllers.AdminOrderLastUpdate(deps.Orders, logg))
			r.Put("/{orderId}/status", controllers.AdminOrderUpdateStatus(deps.Orders, logg))
		})
	})

	return r
}
