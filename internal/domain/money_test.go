package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals_RotDeductionWithVat(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: 1000, Kind: LineItemKindWork, RotEligible: true},
	}

	totals, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(2000), totals.SubtotalWork)
	assert.Equal(t, float64(0), totals.SubtotalMaterial)
	assert.Equal(t, float64(500), totals.VatAmount)
	assert.Equal(t, float64(600), totals.RotDeduction)
	assert.Equal(t, float64(0), totals.RutDeduction)
	assert.Equal(t, float64(1900), totals.TotalDue)
}

func TestComputeTotals_FixedDiscountClampedToSubtotal(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 3000, Kind: LineItemKindWork},
	}

	totals, err := ComputeTotals(lines, DiscountTypeFixed, 5000, true, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(3000), totals.DiscountAmount)
	assert.Equal(t, float64(0), totals.VatAmount)
	assert.Equal(t, float64(0), totals.TotalDue)
}

func TestComputeTotals_PercentDiscount(t *testing.T) {
	lines := []Line{
		{Quantity: 10, UnitPrice: 500, Kind: LineItemKindWork},
		{Quantity: 1, UnitPrice: 2000, Kind: LineItemKindMaterial},
	}

	totals, err := ComputeTotals(lines, DiscountTypePercent, 10, true, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(5000), totals.SubtotalWork)
	assert.Equal(t, float64(2000), totals.SubtotalMaterial)
	assert.Equal(t, float64(700), totals.DiscountAmount)
	// (7000 - 700) * 0.25
	assert.Equal(t, float64(1575), totals.VatAmount)
	assert.Equal(t, float64(7875), totals.TotalDue)
}

func TestComputeTotals_ExpenseIsSeparateBucket(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 1000, Kind: LineItemKindWork},
		{Quantity: 1, UnitPrice: 400, Kind: LineItemKindMaterial},
		{Quantity: 1, UnitPrice: 250, Kind: LineItemKindExpense},
	}

	totals, err := ComputeTotals(lines, DiscountTypeNone, 0, false, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(1000), totals.SubtotalWork)
	assert.Equal(t, float64(400), totals.SubtotalMaterial)
	assert.Equal(t, float64(250), totals.SubtotalExpense)
	assert.Equal(t, float64(1650), totals.TotalDue)
}

func TestComputeTotals_RotCapApplied(t *testing.T) {
	// 30% of 200 000 is 60 000, above the 50 000 cap
	lines := []Line{
		{Quantity: 200, UnitPrice: 1000, Kind: LineItemKindWork, RotEligible: true},
	}

	totals, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(50000), totals.RotDeduction)
	assert.Equal(t, float64(250000-50000+50000), totals.TotalDue) // 200000 + 50000 vat - 50000 rot
}

func TestComputeTotals_RutDeduction(t *testing.T) {
	lines := []Line{
		{Quantity: 4, UnitPrice: 500, Kind: LineItemKindWork, RutEligible: true},
	}

	totals, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(2000), totals.SubtotalWork)
	assert.Equal(t, float64(600), totals.RutDeduction)
	assert.Equal(t, float64(0), totals.RotDeduction)
	assert.Equal(t, float64(1900), totals.TotalDue)
}

func TestComputeTotals_TotalNeverNegative(t *testing.T) {
	// Deductions exceed the VAT-free subtotal after full discount
	lines := []Line{
		{Quantity: 1, UnitPrice: 1000, Kind: LineItemKindWork, RotEligible: true},
	}

	totals, err := ComputeTotals(lines, DiscountTypeFixed, 1000, false, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(1000), totals.DiscountAmount)
	assert.Equal(t, float64(300), totals.RotDeduction)
	assert.Equal(t, float64(0), totals.TotalDue)
}

func TestComputeTotals_RejectsNegativeQuantity(t *testing.T) {
	lines := []Line{
		{Quantity: -1, UnitPrice: 100, Kind: LineItemKindWork},
	}

	_, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestComputeTotals_RejectsRotAndRutOnSameItem(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 100, Kind: LineItemKindWork, RotEligible: true, RutEligible: true},
	}

	_, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestComputeTotals_RejectsUnknownKind(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 100, Kind: "travel"},
	}

	_, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
}

func TestComputeTotals_EmptyItems(t *testing.T) {
	totals, err := ComputeTotals(nil, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
}

func TestComputeTotals_RoundsAtTheEndOnly(t *testing.T) {
	// 3 x 333.33 = 999.99; VAT 249.9975; total 1249.9875 -> 1250
	lines := []Line{
		{Quantity: 3, UnitPrice: 333.33, Kind: LineItemKindWork},
	}

	totals, err := ComputeTotals(lines, DiscountTypeNone, 0, true, DefaultTaxRules())
	require.NoError(t, err)

	assert.Equal(t, float64(1000), totals.SubtotalWork)
	assert.Equal(t, float64(250), totals.VatAmount)
	assert.Equal(t, float64(1250), totals.TotalDue)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(QuoteStatusDraft, QuoteStatusSent))
	assert.True(t, CanTransition(QuoteStatusSent, QuoteStatusViewed))
	assert.True(t, CanTransition(QuoteStatusSent, QuoteStatusAccepted))
	assert.True(t, CanTransition(QuoteStatusViewed, QuoteStatusDeclined))
	assert.True(t, CanTransition(QuoteStatusViewed, QuoteStatusExpired))
	assert.True(t, CanTransition(QuoteStatusChangeRequested, QuoteStatusDraft))

	assert.False(t, CanTransition(QuoteStatusDraft, QuoteStatusAccepted))
	assert.False(t, CanTransition(QuoteStatusAccepted, QuoteStatusDeclined))
	assert.False(t, CanTransition(QuoteStatusDeclined, QuoteStatusSent))
	assert.False(t, CanTransition(QuoteStatusExpired, QuoteStatusAccepted))
	assert.False(t, CanTransition(QuoteStatusSent, QuoteStatusDraft))
}
