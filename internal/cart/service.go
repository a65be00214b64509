package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashu640/ecommerce-backend/pkg/db/models"
	pkgerrors "github.com/ashu640/ecommerce-backend/pkg/errors"
)

// AdjustAction selects the direction of a quantity change.
type AdjustAction string

const (
	AdjustIncrement AdjustAction = "inc"
	AdjustDecrement AdjustAction = "dec"
)

type lineRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	FindLine(ctx context.Context, id, userID uuid.UUID) (*models.CartItem, error)
	FindLineByProduct(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, id, userID uuid.UUID) error
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Summary, error)
	Add(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error)
	Adjust(ctx context.Context, userID, lineID uuid.UUID, action AdjustAction) (*models.CartItem, error)
	Remove(ctx context.Context, userID, lineID uuid.UUID) error
}

type service struct {
	repo     lineRepository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo lineRepository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

// Summary is the cart read model: lines plus derived totals.
type Summary struct {
	Items         []models.CartItem `json:"items"`
	TotalQuantity int               `json:"total_quantity"`
	SubtotalCents int64             `json:"subtotal_cents"`
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	summary := &Summary{Items: items}
	for _, item := range items {
		summary.TotalQuantity += item.Quantity
		if item.Product != nil {
			summary.SubtotalCents += item.Product.PriceCents * int64(item.Quantity)
		}
	}
	return summary, nil
}

func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Stock < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product out of stock")
	}

	existing, err := s.repo.FindLineByProduct(ctx, userID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if existing != nil {
		if existing.Quantity+1 > product.Stock {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "quantity exceeds available stock")
		}
		if err := s.repo.UpdateQuantity(ctx, existing.ID, existing.Quantity+1); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
		}
		existing.Quantity++
		return existing, nil
	}

	line := &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
	}
	created, err := s.repo.Create(ctx, line)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
	}
	return created, nil
}

func (s *service) Adjust(ctx context.Context, userID, lineID uuid.UUID, action AdjustAction) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id required")
	}

	line, err := s.repo.FindLine(ctx, lineID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}

	switch action {
	case AdjustIncrement:
		if line.Product != nil && line.Quantity+1 > line.Product.Stock {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "quantity exceeds available stock")
		}
		line.Quantity++
	case AdjustDecrement:
		if line.Quantity <= 1 {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "quantity cannot go below one")
		}
		line.Quantity--
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action must be inc or dec")
	}

	if err := s.repo.UpdateQuantity(ctx, line.ID, line.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return line, nil
}

func (s *service) Remove(ctx context.Context, userID, lineID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if lineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart item id required")
	}
	if _, err := s.repo.FindLine(ctx, lineID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
	}
	if err := s.repo.DeleteLine(ctx, lineID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
	}
	return nil
}
