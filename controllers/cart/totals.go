package cartControllers

import (
	"github.com/shopspring/decimal"

	"github.com/heyadhira/photoframe-api/models"
)

// Subtotal sums unit price times quantity over the cart lines.
func Subtotal(items []models.CartItem) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}
