package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/internal/cart"
	"github.com/ashu640/ecommerce-backend/internal/orders"
	pkgAuth "github.com/ashu640/ecommerce-backend/pkg/auth"
	"github.com/ashu640/ecommerce-backend/pkg/config"
	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	"github.com/ashu640/ecommerce-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubCache struct{}

func (stubCache) Get(context.Context, string) (string, error) { return "", nil }

func (stubCache) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return true, nil
}

func (stubCache) IdempotencyKey(scope, id string) string { return scope + ":" + id }

func (stubCache) Del(context.Context, ...string) error { return nil }

func (stubCache) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func (stubCache) Ping(context.Context) error { return nil }

type stubSigner struct{}

func (stubSigner) SigningSecret() string { return "whsec_test" }

type routerCartService struct{}

func (routerCartService) Get(context.Context, uuid.UUID) (*cart.Summary, error) {
	return &cart.Summary{}, nil
}

func (routerCartService) Add(context.Context, uuid.UUID, uuid.UUID) (*models.CartItem, error) {
	return &models.CartItem{}, nil
}

func (routerCartService) Adjust(context.Context, uuid.UUID, uuid.UUID, cart.AdjustAction) (*models.CartItem, error) {
	return &models.CartItem{}, nil
}

func (routerCartService) Remove(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type routerCheckoutService struct{}

func (routerCheckoutService) CommitCODOrder(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (routerCheckoutService) InitiateOnlineOrder(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return "https://pay.test/session", nil
}

func (routerCheckoutService) ConfirmPayment(context.Context, string, string) (*models.Order, error) {
	return &models.Order{}, nil
}

type routerOrdersService struct{}

func (routerOrdersService) UpdateStatus(context.Context, orders.UpdateStatusInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (routerOrdersService) Cancel(context.Context, orders.CancelInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (routerOrdersService) ListMine(context.Context, uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (routerOrdersService) ListAll(context.Context) ([]models.Order, error) { return nil, nil }

func (routerOrdersService) Get(context.Context, uuid.UUID, uuid.UUID, enums.UserRole) (*models.Order, error) {
	return &models.Order{}, nil
}

func (routerOrdersService) GetBySession(context.Context, string, uuid.UUID, enums.UserRole) (*models.Order, error) {
	return &models.Order{}, nil
}

func (routerOrdersService) Stats(context.Context) (*orders.Stats, error) {
	return &orders.Stats{}, nil
}

func (routerOrdersService) LastUpdate(context.Context) (*orders.LastUpdate, error) {
	return &orders.LastUpdate{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Env:         "development",
			Port:        "8080",
			FrontendURL: "https://shop.test",
		},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "ecom-test"},
		Limits: config.RateLimitConfig{
			VerifyWindow:       time.Minute,
			VerifyIPLimit:      30,
			VerifySessionLimit: 10,
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:   testConfig(),
		DB:       stubPinger{},
		Redis:    stubCache{},
		Stripe:   stubSigner{},
		Cart:     routerCartService{},
		Checkout: routerCheckoutService{},
		Orders:   routerOrdersService{},
	})
}

func mintToken(t *testing.T, cfg *config.Config, role string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "user@shop.test",
		Role:   enums.UserRole(role),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRouterHealthReady(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestRouterCartRequiresAuth(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestRouterCartWithToken(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(Deps{
		Config:   cfg,
		DB:       stubPinger{},
		Redis:    stubCache{},
		Stripe:   stubSigner{},
		Cart:     routerCartService{},
		Checkout: routerCheckoutService{},
		Orders:   routerOrdersService{},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterAdminBlocksUsers(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(Deps{
		Config:   cfg,
		DB:       stubPinger{},
		Redis:    stubCache{},
		Stripe:   stubSigner{},
		Cart:     routerCartService{},
		Checkout: routerCheckoutService{},
		Orders:   routerOrdersService{},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req2.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, "admin"))
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec2.Code, rec2.Body.String())
	}
}

func TestRouterVerifyRequiresBody(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(Deps{
		Config:   cfg,
		DB:       stubPinger{},
		Redis:    stubCache{},
		Stripe:   stubSigner{},
		Cart:     routerCartService{},
		Checkout: routerCheckoutService{},
		Orders:   routerOrdersService{},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/verify", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, "user"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterOrderCODRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(Deps{
		Config:   cfg,
		DB:       stubPinger{},
		Redis:    stubCache{},
		Stripe:   stubSigner{},
		Cart:     routerCartService{},
		Checkout: routerCheckoutService{},
		Orders:   routerOrdersService{},
	})
	token := mintToken(t, cfg, "user")
	payload := `{"address_id":"` + uuid.NewString() + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/cod", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d (%s)", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/orders/cod", strings.NewReader(payload))
	req2.Header.Set("Authorization", "Bearer "+token)
	req2.Header.Set("Idempotency-Key", uuid.NewString())
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("expected 201 with idempotency key, got %d (%s)", rec2.Code, rec2.Body.String())
	}
}
