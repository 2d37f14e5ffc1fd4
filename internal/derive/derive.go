// Package derive computes the tax-derived fields of a canonical invoice
// record from raw extracted text. VAT amounts are always recomputed here
// using exact decimal arithmetic; values reported by the extraction backend
// are never trusted.
package derive

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/adars/invoice-ai/internal/models"
	"github.com/adars/invoice-ai/internal/numeric"
)

var (
	vatRate = decimal.RequireFromString("0.15")
	fifteen = decimal.NewFromInt(15)
	one     = decimal.NewFromInt(1)
)

// Line converts one raw extracted line into a canonical line item.
// vat_amount = quantity × unit_price × 0.15, rounded to 2 decimal places.
// If either quantity or unit price is non-numeric, vat_amount is "0" and the
// line is kept with its raw textual fields intact for audit. Line is a pure
// function: identical input yields byte-identical output.
func Line(raw models.RawLineItem) models.LineItem {
	vat := "0"
	if qty, qok := numeric.Clean(raw.Quantity); qok {
		if price, pok := numeric.Clean(raw.UnitPrice); pok {
			vat = qty.Mul(price).Mul(vatRate).Round(2).StringFixed(2)
		}
	}

	return models.LineItem{
		Product:     raw.Product,
		Quantity:    raw.Quantity,
		UnitPrice:   raw.UnitPrice,
		GrossAmount: raw.GrossAmount,
		Tax:         normalizeTax(raw.Tax),
		VATAmount:   vat,
	}
}

// normalizeTax maps free-text tax values into the closed domain {"0", "15%"}.
// Anything that reads as fifteen percent becomes "15%"; everything else,
// including values the backend should never have produced, collapses to "0".
func normalizeTax(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if n, ok := numeric.Clean(trimmed); ok && n.Equal(fifteen) {
		return "15%"
	}
	return "0"
}

// TotalVAT sums the derived vat_amount of every line item, rounded to
// 2 decimal places. Lines whose vat_amount does not parse contribute 0.
func TotalVAT(record *models.InvoiceRecord) string {
	total := decimal.Zero
	for _, line := range record.LineItems {
		if v, ok := numeric.Clean(line.VATAmount); ok {
			total = total.Add(v)
		}
	}
	return total.Round(2).StringFixed(2)
}

// Subtotal sums quantity × unit_price over all line items, before VAT.
// A line with no parseable unit price contributes 0; a missing quantity
// defaults to 1.
func Subtotal(record *models.InvoiceRecord) string {
	total := decimal.Zero
	for _, line := range record.LineItems {
		price, ok := numeric.Clean(line.UnitPrice)
		if !ok {
			continue
		}
		qty, ok := numeric.Clean(line.Quantity)
		if !ok {
			qty = one
		}
		total = total.Add(qty.Mul(price))
	}
	return total.Round(2).StringFixed(2)
}

// TotalAmount is Subtotal + TotalVAT.
func TotalAmount(record *models.InvoiceRecord) string {
	subtotal := decimal.RequireFromString(Subtotal(record))
	vat := decimal.RequireFromString(TotalVAT(record))
	return subtotal.Add(vat).Round(2).StringFixed(2)
}
