package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/pkg/enums"
)

// Order is the ledger record for a committed purchase. PaymentRef carries the
// payment session id for online orders; its unique index is what makes
// confirmation idempotent under concurrent delivery.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Method        enums.PaymentMethod `gorm:"column:method;type:text;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentRef    *string             `gorm:"column:payment_ref;uniqueIndex:idx_orders_payment_ref"`
	SubtotalCents int64               `gorm:"column:subtotal_cents;not null"`
	ShippingName  string              `gorm:"column:shipping_name;not null"`
	ShippingPhone string              `gorm:"column:shipping_phone;not null"`
	ShippingLine1 string              `gorm:"column:shipping_line1;not null"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
