package models

import (
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is one placed order. Lines are stored in order_products.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID       uuid.UUID         `gorm:"column:profiles_id;type:uuid;not null"`
	OrderStatus     enums.OrderStatus `gorm:"column:order_status;type:text;not null;default:'Pending'"`
	ShippingAddress string            `gorm:"column:shipping_address;not null"`
	PaymentIntentID *string           `gorm:"column:payment_intent_id"`
	Products        []OrderProduct    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderProduct is a frozen order line. ProductPrice is the unit price that
// was charged, after any bulk discount.
type OrderProduct struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID       *string         `gorm:"column:product_id"`
	ProductName     string          `gorm:"column:product_name;not null"`
	ProductQuantity int             `gorm:"column:product_quantity;not null"`
	ProductPrice    decimal.Decimal `gorm:"column:product_price;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderProduct) TableName() string { return "order_products" }
