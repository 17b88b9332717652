package models

import (
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing.
type Product struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductName  string                `gorm:"column:product_name;not null"`
	Description  *string               `gorm:"column:description"`
	Price        decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Company      *string               `gorm:"column:company"`
	Category     enums.ProductCategory `gorm:"column:category;type:text;not null"`
	Quantity     int                   `gorm:"column:quantity;not null;default:0"`
	Status       bool                  `gorm:"column:status;not null;default:true"`
	ProductImage *string               `gorm:"column:product_image"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
