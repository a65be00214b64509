package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashu640/ecommerce-backend/pkg/db/models"
)

// Repository exposes the catalog reads and the stock mutations the checkout
// pipeline needs.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}


// SoldCount is one row of the per-product sales stat.
type SoldCount struct {
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Sold      int       `json:"sold"`
}

// ListSoldCounts returns per-product sold totals, most sold first.
func (r *Repository) ListSoldCounts(ctx context.Context) ([]SoldCount, error) {
	var counts []SoldCount
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id AS product_id, title, sold").
		Where("sold > 0").
		Order("sold DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// AdjustStockAndSoldWithTx applies a purchase inside the caller's
// transaction.
func (r *Repository) AdjustStockAndSoldWithTx(tx *gorm.DB, productID uuid.UUID, qty int) error {
	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock": gorm.Expr("stock - ?", qty),
			"sold":  gorm.Expr("sold + ?", qty),
		}).Error
}
