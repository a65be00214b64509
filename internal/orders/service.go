package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashu640/ecommerce-backend/internal/products"
	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	"github.com/ashu640/ecommerce-backend/pkg/enums"
	pkgerrors "github.com/ashu640/ecommerce-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type soldCounter interface {
	ListSoldCounts(ctx context.Context) ([]products.SoldCount, error)
}

type cancellationNotifier interface {
	OrderCancelled(ctx context.Context, order *models.Order)
}

// Service defines ledger operations beyond repository reads.
type Service interface {
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	Get(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.Order, error)
	GetBySession(ctx context.Context, sessionID string, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.Order, error)
	Stats(ctx context.Context) (*Stats, error)
	LastUpdate(ctx context.Context) (*LastUpdate, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	sold     soldCounter
	notifier cancellationNotifier
}

// NewService builds an order ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, sold soldCounter, notifier cancellationNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if sold == nil {
		return nil, fmt.Errorf("sold counter required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("cancellation notifier required")
	}
	return &service{repo: repo, tx: tx, sold: sold, notifier: notifier}, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Target {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status unchanged")
		}
		if input.Target == enums.OrderStatusCancelled {
			if order.Status == enums.OrderStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already cancelled")
			}
			if order.Status.IsTerminalForCancel() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel after shipment")
			}
		} else if !allowedTransition(order.Status, input.Target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition disallowed")
		}

		if err := repo.UpdateStatus(ctx, order.ID, input.Target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = input.Target
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status == enums.OrderStatusCancelled {
		s.notifier.OrderCancelled(ctx, updated)
	}
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var cancelled *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.UserID != input.ActorUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already cancelled")
		}
		if order.Status.IsTerminalForCancel() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot cancel after shipment")
		}

		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderCancelled(ctx, cancelled)
	return cancelled, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) Get(ctx context.Context, orderID, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != actorUserID && actorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) GetBySession(ctx context.Context, sessionID string, actorUserID uuid.UUID, actorRole enums.UserRole) (*models.Order, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	order, err := s.repo.FindByPaymentRef(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != actorUserID && actorRole != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.repo.CountByMethod(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	sold, err := s.sold.ListSoldCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count sold products")
	}
	stats := &Stats{
		CODOrders:    counts[enums.PaymentMethodCOD],
		OnlineOrders: counts[enums.PaymentMethodOnline],
		ProductsSold: sold,
	}
	stats.TotalOrders = stats.CODOrders + stats.OnlineOrders
	return stats, nil
}

func (s *service) LastUpdate(ctx context.Context) (*LastUpdate, error) {
	latest, err := s.repo.MaxUpdatedAt(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read last update")
	}
	return &LastUpdate{UpdatedAt: latest}, nil
}

// allowedTransition encodes pending -> shipped -> delivered. Cancellation is
// validated separately.
func allowedTransition(from, to enums.OrderStatus) bool {
	switch from {
	case enums.OrderStatusPending:
		return to == enums.OrderStatusShipped
	case enums.OrderStatusShipped:
		return to == enums.OrderStatusDelivered
	default:
		return false
	}
}
