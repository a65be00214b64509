package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ashu640/ecommerce-backend/pkg/types"
)

// Product represents a catalog listing. Stock and Sold are mutated only by
// the checkout commit step.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title         string              `gorm:"column:title;not null"`
	TitleBN       *string             `gorm:"column:title_bn"`
	Description   string              `gorm:"column:description;not null"`
	DescriptionBN *string             `gorm:"column:description_bn"`
	Category      string              `gorm:"column:category;not null"`
	Author        *string             `gorm:"column:author"`
	PriceCents    int64               `gorm:"column:price_cents;not null"`
	OldPriceCents *int64              `gorm:"column:old_price_cents"`
	Stock         int                 `gorm:"column:stock;not null;default:0"`
	Sold          int                 `gorm:"column:sold;not null;default:0"`
	Images        types.ProductImages `gorm:"column:images;type:jsonb;serializer:json"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
