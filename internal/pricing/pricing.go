// Package pricing derives order totals from cart lines. Pure arithmetic, no
// I/O: totals are accumulated exactly and rounded half-up to two decimal
// places only once, at the end, so intermediate rounding never drifts.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/velora/bizportal/internal/models"
)

// TaxRate is the fixed portal-wide tax rate (15%).
var TaxRate = decimal.New(15, -2)

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Price computes subtotal, tax and total for the given lines. Subtotal and
// tax are each rounded once; the total is their sum, so
// Total == Subtotal + Tax holds exactly.
func Price(lines []models.CartLine) Totals {
	subtotal := decimal.Zero
	for i := range lines {
		qty := decimal.NewFromInt(int64(lines[i].Quantity))
		subtotal = subtotal.Add(lines[i].UnitPrice.Mul(qty))
	}

	tax := subtotal.Mul(TaxRate)

	roundedSubtotal := subtotal.Round(2)
	roundedTax := tax.Round(2)

	return Totals{
		Subtotal: roundedSubtotal,
		Tax:      roundedTax,
		Total:    roundedSubtotal.Add(roundedTax),
	}
}

// LineTotal prices a single line, rounded to the persisted precision.
func LineTotal(line models.CartLine) decimal.Decimal {
	qty := decimal.NewFromInt(int64(line.Quantity))
	return line.UnitPrice.Mul(qty).Round(2)
}
