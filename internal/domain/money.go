package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidLineItem indicates a line item that cannot be priced:
// negative quantity or unit price, an unknown kind, or an item claiming
// both ROT and RUT eligibility.
var ErrInvalidLineItem = errors.New("invalid line item")

// TaxRules holds the Swedish tax parameters applied by ComputeTotals.
// Percentages are expressed as whole numbers (30 = 30%), the VAT rate
// as a fraction (0.25 = 25%). Caps are per document in SEK; a zero cap
// means uncapped.
type TaxRules struct {
	VatRate    float64
	RotPercent float64
	RutPercent float64
	RotCapSek  float64
	RutCapSek  float64
}

// DefaultTaxRules returns the current Swedish defaults: 25% VAT and
// 30% ROT/RUT deduction capped at 50 000 SEK per document.
func DefaultTaxRules() TaxRules {
	return TaxRules{
		VatRate:    0.25,
		RotPercent: 30,
		RutPercent: 30,
		RotCapSek:  50000,
		RutCapSek:  50000,
	}
}

// Line is the pricing-relevant view of a line item, decoupled from the
// persisted QuoteItem/InvoiceItem models.
type Line struct {
	Quantity    float64
	UnitPrice   float64
	Kind        LineItemKind
	RotEligible bool
	RutEligible bool
}

// LinesFromQuoteItems converts persisted quote items to pricing lines
func LinesFromQuoteItems(items []QuoteItem) []Line {
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Kind:        it.Kind,
			RotEligible: it.RotEligible,
			RutEligible: it.RutEligible,
		}
	}
	return lines
}

// LinesFromInvoiceItems converts persisted invoice items to pricing lines
func LinesFromInvoiceItems(items []InvoiceItem) []Line {
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Kind:        it.Kind,
			RotEligible: it.RotEligible,
			RutEligible: it.RutEligible,
		}
	}
	return lines
}

// ComputeTotals derives the money snapshot for a document from its line
// items. The computation order is fixed and legally significant:
//
//  1. subtotals per kind (work, material, expense)
//  2. discount (percent of the combined subtotal, or a fixed amount
//     clamped to the subtotal so the pre-VAT base never goes negative)
//  3. VAT on the discounted base, when enabled
//  4. ROT deduction: RotPercent of each rot-eligible item's pre-discount
//     amount, capped per document; RUT identically with its own cap
//  5. totalDue = afterDiscount + VAT − ROT − RUT, floored at 0
//
// Intermediate sums use exact decimals; amounts are rounded to whole SEK
// only when written into the returned Totals. An item flagged both
// rotEligible and rutEligible is rejected with ErrInvalidLineItem.
func ComputeTotals(lines []Line, discountType DiscountType, discountValue float64, vatEnabled bool, tax TaxRules) (Totals, error) {
	var (
		subtotalWork     = decimal.Zero
		subtotalMaterial = decimal.Zero
		subtotalExpense  = decimal.Zero
		rotBase          = decimal.Zero
		rutBase          = decimal.Zero
	)

	for i, line := range lines {
		if line.Quantity < 0 || line.UnitPrice < 0 {
			return Totals{}, fmt.Errorf("%w: item %d has negative quantity or unit price", ErrInvalidLineItem, i)
		}
		if line.RotEligible && line.RutEligible {
			return Totals{}, fmt.Errorf("%w: item %d claims both ROT and RUT", ErrInvalidLineItem, i)
		}

		amount := decimal.NewFromFloat(line.UnitPrice).Mul(decimal.NewFromFloat(line.Quantity))

		switch line.Kind {
		case LineItemKindWork:
			subtotalWork = subtotalWork.Add(amount)
		case LineItemKindMaterial:
			subtotalMaterial = subtotalMaterial.Add(amount)
		case LineItemKindExpense:
			subtotalExpense = subtotalExpense.Add(amount)
		default:
			return Totals{}, fmt.Errorf("%w: item %d has unknown kind %q", ErrInvalidLineItem, i, line.Kind)
		}

		if line.RotEligible {
			rotBase = rotBase.Add(amount)
		}
		if line.RutEligible {
			rutBase = rutBase.Add(amount)
		}
	}

	subtotal := subtotalWork.Add(subtotalMaterial).Add(subtotalExpense)

	var discount decimal.Decimal
	switch discountType {
	case DiscountTypePercent:
		discount = subtotal.Mul(decimal.NewFromFloat(discountValue)).Div(decimal.NewFromInt(100))
	case DiscountTypeFixed:
		discount = decimal.NewFromFloat(discountValue)
		// A fixed discount larger than the subtotal is clamped, not
		// rejected: the base before VAT never goes negative.
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	default:
		discount = decimal.Zero
	}

	afterDiscount := subtotal.Sub(discount)

	vat := decimal.Zero
	if vatEnabled {
		vat = afterDiscount.Mul(decimal.NewFromFloat(tax.VatRate))
	}

	rot := rotBase.Mul(decimal.NewFromFloat(tax.RotPercent)).Div(decimal.NewFromInt(100))
	rot = capDeduction(rot, tax.RotCapSek)
	rut := rutBase.Mul(decimal.NewFromFloat(tax.RutPercent)).Div(decimal.NewFromInt(100))
	rut = capDeduction(rut, tax.RutCapSek)

	total := afterDiscount.Add(vat).Sub(rot).Sub(rut)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		SubtotalWork:     toSek(subtotalWork),
		SubtotalMaterial: toSek(subtotalMaterial),
		SubtotalExpense:  toSek(subtotalExpense),
		DiscountAmount:   toSek(discount),
		VatAmount:        toSek(vat),
		RotDeduction:     toSek(rot),
		RutDeduction:     toSek(rut),
		TotalDue:         toSek(total),
	}, nil
}

func capDeduction(d decimal.Decimal, capSek float64) decimal.Decimal {
	if capSek <= 0 {
		return d
	}
	capped := decimal.NewFromFloat(capSek)
	if d.GreaterThan(capped) {
		return capped
	}
	return d
}

// toSek rounds to whole SEK. Rounding happens here and nowhere else.
func toSek(d decimal.Decimal) float64 {
	f, _ := d.Round(0).Float64()
	return f
}
