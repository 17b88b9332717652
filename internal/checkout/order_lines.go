package checkout

import (
	"github.com/angelmondragon/teahouse-backend/internal/cart"
	"github.com/angelmondragon/teahouse-backend/internal/orders"
)

// OrderLines freezes the charged unit price of every cart line. Each line's
// price times its quantity equals the discounted total that was charged.
func OrderLines(items []cart.LineItem, pricing cart.Pricing) []orders.LineInput {
	lines := make([]orders.LineInput, 0, len(items))
	for _, item := range items {
		lines = append(lines, orders.LineInput{
			ProductID:   item.ID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   pricing.ChargedUnitPrice(item),
		})
	}
	return lines
}
