package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/internal/products"
	"github.com/ashu640/ecommerce-backend/pkg/enums"
)

// UpdateStatusInput carries an admin status transition.
type UpdateStatusInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   enums.UserRole
}

// CancelInput carries an owner-initiated cancellation.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
}

// Stats aggregates ledger counts for the admin dashboard.
type Stats struct {
	CODOrders    int64                `json:"cod_orders"`
	OnlineOrders int64                `json:"online_orders"`
	TotalOrders  int64                `json:"total_orders"`
	ProductsSold []products.SoldCount `json:"products_sold"`
}

// LastUpdate reports when any order last changed, for admin polling.
type LastUpdate struct {
	UpdatedAt *time.Time `json:"updated_at"`
}
