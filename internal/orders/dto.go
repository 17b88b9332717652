package orders

import (
	"time"

	"github.com/angelmondragon/teahouse-backend/pkg/db/models"
	"github.com/angelmondragon/teahouse-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one order line as charged.
type LineInput struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// PlaceOrderInput captures everything needed to record a paid order.
type PlaceOrderInput struct {
	ProfileID       uuid.UUID
	ShippingAddress string
	PaymentIntentID string
	Lines           []LineInput
}

// ListFilters narrows the admin order list.
type ListFilters struct {
	Status *enums.OrderStatus
}

// OrderLineDTO is an order_products row with its display total.
type OrderLineDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       *string         `json:"product_id,omitempty"`
	ProductName     string          `json:"product_name"`
	ProductQuantity int             `json:"product_quantity"`
	ProductPrice    decimal.Decimal `json:"product_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// OrderDTO is the API representation of an order with its lines.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	ProfileID       uuid.UUID         `json:"profiles_id"`
	OrderStatus     enums.OrderStatus `json:"order_status"`
	ShippingAddress string            `json:"shipping_address"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	Lines           []OrderLineDTO    `json:"order_products"`
	Total           decimal.Decimal   `json:"total"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// FromModel converts a stored order, including any preloaded lines.
func FromModel(m models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              m.ID,
		ProfileID:       m.ProfileID,
		OrderStatus:     m.OrderStatus,
		ShippingAddress: m.ShippingAddress,
		PaymentIntentID: m.PaymentIntentID,
		Lines:           make([]OrderLineDTO, 0, len(m.Products)),
		Total:           decimal.Zero,
		CreatedAt:       m.CreatedAt,
	}
	for _, p := range m.Products {
		lineTotal := p.ProductPrice.Mul(decimal.NewFromInt(int64(p.ProductQuantity)))
		dto.Lines = append(dto.Lines, OrderLineDTO{
			ID:              p.ID,
			ProductID:       p.ProductID,
			ProductName:     p.ProductName,
			ProductQuantity: p.ProductQuantity,
			ProductPrice:    p.ProductPrice,
			LineTotal:       lineTotal,
		})
		dto.Total = dto.Total.Add(lineTotal)
	}
	return dto
}
