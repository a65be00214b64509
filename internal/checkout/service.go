package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/ashu640/ecommerce-backend/internal/orders"
	"github.com/ashu640/ecommerce-backend/pkg/config"
	"github.com/ashu640/ecommerce-backend/pkg/db"
	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	"github.com/ashu640/ecommerce-backend/pkg/enums"
	pkgerrors "github.com/ashu640/ecommerce-backend/pkg/errors"
	"github.com/ashu640/ecommerce-backend/pkg/logger"
)

const paymentRefConstraint = "idx_orders_payment_ref"

// ConfirmPath labels which delivery path triggered a confirmation.
const (
	ConfirmPathWebhook = "webhook"
	ConfirmPathVerify  = "verify"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	ClearByUserWithTx(tx *gorm.DB, userID uuid.UUID) error
}

type productStore interface {
	AdjustStockAndSoldWithTx(tx *gorm.DB, productID uuid.UUID, qty int) error
}

type addressStore interface {
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
}

type confirmationNotifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order)
}

type checkoutMetrics interface {
	IncOrderCreated(method string)
	ObserveConfirmDuration(path string, duration time.Duration)
}

// Service orchestrates cart-to-order commits for both payment methods.
type Service interface {
	CommitCODOrder(ctx context.Context, userID, addressID uuid.UUID) (*models.Order, error)
	InitiateOnlineOrder(ctx context.Context, userID, addressID uuid.UUID) (string, error)
	ConfirmPayment(ctx context.Context, sessionID, path string) (*models.Order, error)
}

// ServiceParams wires the orchestrator dependencies.
type ServiceParams struct {
	Tx        txRunner
	CartRepo  cartStore
	Products  productStore
	Addresses addressStore
	Orders    orders.Repository
	Gateway   PaymentGateway
	Notifier  confirmationNotifier
	Metrics   checkoutMetrics
	Logger    *logger.Logger
	Stripe    config.StripeConfig
	Frontend  string
}

type service struct {
	tx        txRunner
	cartRepo  cartStore
	products  productStore
	addresses addressStore
	orders    orders.Repository
	gateway   PaymentGateway
	notifier  confirmationNotifier
	metrics   checkoutMetrics
	logg      *logger.Logger
	stripeCfg config.StripeConfig
	frontend  string
}

// NewService builds the checkout orchestrator.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("addresses repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Frontend == "" {
		return nil, fmt.Errorf("frontend url required")
	}
	return &service{
		tx:        params.Tx,
		cartRepo:  params.CartRepo,
		products:  params.Products,
		addresses: params.Addresses,
		orders:    params.Orders,
		gateway:   params.Gateway,
		notifier:  params.Notifier,
		metrics:   params.Metrics,
		logg:      params.Logger,
		stripeCfg: params.Stripe,
		frontend:  params.Frontend,
	}, nil
}

// checkoutLines is a priced snapshot of the live cart.
type checkoutLines struct {
	items    []models.OrderItem
	subtotal int64
}

func (s *service) loadLines(ctx context.Context, userID uuid.UUID) ([]models.CartItem, *checkoutLines, error) {
	cartItems, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(cartItems) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := &checkoutLines{items: make([]models.OrderItem, 0, len(cartItems))}
	for _, item := range cartItems {
		if item.Product == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists")
		}
		lines.items = append(lines.items, models.OrderItem{
			ProductID:  item.ProductID,
			Name:       item.Product.Title,
			PriceCents: item.Product.PriceCents,
			Quantity:   item.Quantity,
		})
		lines.subtotal += item.Product.PriceCents * int64(item.Quantity)
	}
	return cartItems, lines, nil
}

func (s *service) resolveAddress(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	addr, err := s.addresses.FindByIDForUser(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return addr, nil
}

// CommitCODOrder snapshots the cart into a pending cash-on-delivery order.
// Stock moves and the cart clears in the same transaction as the insert.
func (s *service) CommitCODOrder(ctx context.Context, userID, addressID uuid.UUID) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	_, lines, err := s.loadLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, err := s.resolveAddress(ctx, addressID, userID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:        userID,
		Method:        enums.PaymentMethodCOD,
		Status:        enums.OrderStatusPending,
		SubtotalCents: lines.subtotal,
		ShippingName:  addr.FullName,
		ShippingPhone: addr.Phone,
		ShippingLine1: addr.Line1,
		Items:         lines.items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.commitOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated(enums.PaymentMethodCOD.String())
	}
	s.notifier.OrderConfirmed(ctx, order)
	return order, nil
}

// InitiateOnlineOrder creates a hosted payment session from the live cart.
// No order row exists until the payment is confirmed.
func (s *service) InitiateOnlineOrder(ctx context.Context, userID, addressID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cartItems, _, err := s.loadLines(ctx, userID)
	if err != nil {
		return "", err
	}
	addr, err := s.resolveAddress(ctx, addressID, userID)
	if err != nil {
		return "", err
	}

	currency := s.stripeCfg.Currency
	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(cartItems))
	for _, item := range cartItems {
		productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Product.Title),
		}
		if first := item.Product.Images.First(); first != "" {
			productData.Images = []*string{stripe.String(first)}
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(item.Product.PriceCents),
				ProductData: productData,
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(s.frontend + "/ordersuccess?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.frontend + "/cart"),
	}
	params.AddMetadata("user_id", userID.String())
	params.AddMetadata("address_id", addr.ID.String())
	params.AddMetadata("method", enums.PaymentMethodOnline.String())

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout())
	defer cancel()
	session, err := s.gateway.CreateCheckoutSession(gwCtx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	return session.URL, nil
}

// ConfirmPayment is the single idempotent confirm used by both the webhook
// push path and the client verify pull path.
func (s *service) ConfirmPayment(ctx context.Context, sessionID, path string) (*models.Order, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	started := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveConfirmDuration(path, time.Since(started))
		}
	}()

	gwCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout())
	defer cancel()
	session, err := s.gateway.RetrieveCheckoutSession(gwCtx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodePaymentIncomplete, "payment not completed")
	}

	if existing, err := s.orders.FindByPaymentRef(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup existing order")
	}

	userID, err := uuid.Parse(session.Metadata["user_id"])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session metadata missing user id")
	}
	addressID, err := uuid.Parse(session.Metadata["address_id"])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session metadata missing address id")
	}

	_, lines, err := s.loadLines(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, err := s.resolveAddress(ctx, addressID, userID)
	if err != nil {
		return nil, err
	}

	// The amount the provider charged must equal the amount the live cart
	// prices to. A mismatch means the session was built from a different
	// cart; never trust the client-reported figure.
	if session.AmountTotal != lines.subtotal {
		return nil, pkgerrors.New(pkgerrors.CodeTampering, "payment amount mismatch").
			WithDetails(map[string]any{"charged_cents": session.AmountTotal, "cart_cents": lines.subtotal})
	}

	now := time.Now().UTC()
	ref := sessionID
	order := &models.Order{
		UserID:        userID,
		Method:        enums.PaymentMethodOnline,
		Status:        enums.OrderStatusPending,
		PaymentRef:    &ref,
		SubtotalCents: lines.subtotal,
		ShippingName:  addr.FullName,
		ShippingPhone: addr.Phone,
		ShippingLine1: addr.Line1,
		PaidAt:        &now,
		Items:         lines.items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.commitOrder(ctx, tx, order)
	})
	if err != nil {
		if db.IsUniqueViolation(err, paymentRefConstraint) {
			// A concurrent confirm won the insert race; hand back its order.
			winner, findErr := s.orders.FindByPaymentRef(ctx, sessionID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load winning order")
			}
			return winner, nil
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated(enums.PaymentMethodOnline.String())
	}
	s.notifier.OrderConfirmed(ctx, order)
	return order, nil
}

// commitOrder inserts the order with items, moves stock, and clears the cart
// inside the caller's transaction.
func (s *service) commitOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	repo := s.orders.WithTx(tx)
	if _, err := repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, paymentRefConstraint) {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	for _, item := range order.Items {
		if err := s.products.AdjustStockAndSoldWithTx(tx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
		}
	}
	if err := s.cartRepo.ClearByUserWithTx(tx, order.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) gatewayTimeout() time.Duration {
	if s.stripeCfg.CallTimeout > 0 {
		return s.stripeCfg.CallTimeout
	}
	return 10 * time.Second
}
