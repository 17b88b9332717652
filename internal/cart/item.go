package cart

import (
	"github.com/shopspring/decimal"
)

// LineItem is one product entry in the cart. The JSON shape is the durable
// storage format.
type LineItem struct {
	ID          string          `json:"id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Product is the input to AddItem. A nil Price is treated as zero.
type Product struct {
	ID    string
	Name  string
	Price *decimal.Decimal
}

// DetailedItem is a line item enriched with its derived pricing.
type DetailedItem struct {
	LineItem
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountRate    decimal.Decimal `json:"discount_rate"`
	Discount        decimal.Decimal `json:"discount"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
}

// Pricing holds the bulk discount rule: lines with at least MinQty units
// get Rate off.
type Pricing struct {
	MinQty int
	Rate   decimal.Decimal
}

// DefaultPricing is 10% off lines of three or more.
func DefaultPricing() Pricing {
	return Pricing{MinQty: 3, Rate: decimal.New(1, -1)}
}

// RateFor returns the discount rate that applies to a line of qty units.
func (p Pricing) RateFor(qty int) decimal.Decimal {
	if p.MinQty > 0 && qty >= p.MinQty {
		return p.Rate
	}
	return decimal.Zero
}

// Detail derives subtotal, discount and discounted total for item.
func (p Pricing) Detail(item LineItem) DetailedItem {
	rate := p.RateFor(item.Quantity)
	subtotal := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
	discount := subtotal.Mul(rate)
	return DetailedItem{
		LineItem:        item,
		Subtotal:        subtotal,
		DiscountRate:    rate,
		Discount:        discount,
		DiscountedTotal: subtotal.Sub(discount),
	}
}

// ChargedUnitPrice is the per-unit price after the bulk discount. Multiplied
// by the quantity it equals the line's discounted total.
func (p Pricing) ChargedUnitPrice(item LineItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(1).Sub(p.RateFor(item.Quantity)))
}
