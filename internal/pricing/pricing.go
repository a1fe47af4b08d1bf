// Package pricing computes line and order amounts. All functions are pure and
// work on decimal amounts, so totals never accumulate floating-point drift.
package pricing

import (
	"fmt"

	"pizzaria/internal/model"

	"github.com/shopspring/decimal"
)

var (
	// DeliveryFeeAmount is charged when the order is delivered.
	DeliveryFeeAmount = decimal.RequireFromString("8.50")

	// FreeDeliveryThreshold drives the informational free-delivery banner.
	FreeDeliveryThreshold = decimal.RequireFromString("60.00")

	borderPrices = map[model.Border]decimal.Decimal{
		model.BorderTradicional: decimal.Zero,
		model.BorderCatupiry:    decimal.NewFromInt(5),
		model.BorderCheddar:     decimal.NewFromInt(6),
		model.BorderChocolate:   decimal.NewFromInt(8),
	}
)

// BorderPrice returns the add-on price of a border.
func BorderPrice(border model.Border) (decimal.Decimal, error) {
	price, ok := borderPrices[border]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown border %q", border)
	}
	return price, nil
}

// UnitPrice is the price of one pizza of the given size and border.
func UnitPrice(product model.Product, size model.Size, border model.Border) (decimal.Decimal, error) {
	base, err := product.Prices.For(size)
	if err != nil {
		return decimal.Zero, err
	}
	addOn, err := BorderPrice(border)
	if err != nil {
		return decimal.Zero, err
	}
	return base.Add(addOn), nil
}

// LinePrice returns (base + addOn) * quantity.
func LinePrice(product model.Product, size model.Size, border model.Border, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, model.ErrInvalidQuantity
	}
	unit, err := UnitPrice(product, size, border)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// DeliveryFee returns the fee for the fulfilment type.
func DeliveryFee(t model.FulfillmentType) decimal.Decimal {
	if t == model.FulfillmentEntrega {
		return DeliveryFeeAmount
	}
	return decimal.Zero
}

// Subtotal sums the line prices of the cart lines.
func Subtotal(lines []model.CartLine) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, line := range lines {
		price, err := LinePrice(line.Product, line.Customization.Size, line.Customization.Border, line.Quantity)
		if err != nil {
			return decimal.Zero, fmt.Errorf("line %s: %w", line.ID, err)
		}
		sum = sum.Add(price)
	}
	return sum, nil
}

// OrderTotal is the subtotal plus the delivery fee.
func OrderTotal(lines []model.CartLine, t model.FulfillmentType) (decimal.Decimal, error) {
	subtotal, err := Subtotal(lines)
	if err != nil {
		return decimal.Zero, err
	}
	return subtotal.Add(DeliveryFee(t)), nil
}

// ItemsTotal sums unit price * quantity of provider line items.
func ItemsTotal(items []model.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// FreeDeliveryShortfall reports how much is missing for free delivery.
// It does not change any price.
func FreeDeliveryShortfall(subtotal decimal.Decimal) (shortfall decimal.Decimal, reached bool) {
	if subtotal.GreaterThanOrEqual(FreeDeliveryThreshold) {
		return decimal.Zero, true
	}
	return FreeDeliveryThreshold.Sub(subtotal), false
}

// ToMinorUnits converts an amount to centavos, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// Display rounds an amount to two fractional digits.
func Display(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
