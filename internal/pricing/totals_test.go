package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chantierflow/commerce-api/internal/domain"
	"github.com/chantierflow/commerce-api/internal/pricing"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputeLineTotals(t *testing.T) {
	t.Run("standard line with 20 percent VAT", func(t *testing.T) {
		line := domain.DocumentLine{
			Quantity:    floatPtr(10),
			UnitPriceHT: floatPtr(45.50),
			TaxRate:     0.20,
		}
		totals := pricing.ComputeLineTotals(&line)
		assert.Equal(t, 455.00, totals.TotalHT)
		assert.Equal(t, 91.00, totals.TotalTVA)
		assert.Equal(t, 546.00, totals.TotalTTC)
	})

	t.Run("reduced renovation rate", func(t *testing.T) {
		line := domain.DocumentLine{
			Quantity:    floatPtr(3),
			UnitPriceHT: floatPtr(120),
			TaxRate:     0.10,
		}
		totals := pricing.ComputeLineTotals(&line)
		assert.Equal(t, 360.00, totals.TotalHT)
		assert.Equal(t, 36.00, totals.TotalTVA)
		assert.Equal(t, 396.00, totals.TotalTTC)
	})

	t.Run("nil quantity yields zero totals", func(t *testing.T) {
		line := domain.DocumentLine{
			UnitPriceHT: floatPtr(99.99),
			TaxRate:     0.20,
		}
		totals := pricing.ComputeLineTotals(&line)
		assert.Equal(t, 0.0, totals.TotalHT)
		assert.Equal(t, 0.0, totals.TotalTVA)
		assert.Equal(t, 0.0, totals.TotalTTC)
	})

	t.Run("nil unit price yields zero totals", func(t *testing.T) {
		line := domain.DocumentLine{
			Quantity: floatPtr(4),
			TaxRate:  0.20,
		}
		totals := pricing.ComputeLineTotals(&line)
		assert.Equal(t, 0.0, totals.TotalHT)
		assert.Equal(t, 0.0, totals.TotalTTC)
	})

	t.Run("zero tax rate", func(t *testing.T) {
		line := domain.DocumentLine{
			Quantity:    floatPtr(2),
			UnitPriceHT: floatPtr(50),
			TaxRate:     0,
		}
		totals := pricing.ComputeLineTotals(&line)
		assert.Equal(t, 100.00, totals.TotalHT)
		assert.Equal(t, 0.0, totals.TotalTVA)
		assert.Equal(t, 100.00, totals.TotalTTC)
	})

	t.Run("rounds to cents", func(t *testing.T) {
		line := domain.DocumentLine{
			Quantity:    floatPtr(3),
			UnitPriceHT: floatPtr(33.333),
			TaxRate:     0.20,
		}
		totals := pricing.ComputeLineTotals(&line)
		// 3 * 33.333 = 99.999 -> 100.00; VAT 19.9998 -> 20.00
		assert.Equal(t, 100.00, totals.TotalHT)
		assert.Equal(t, 20.00, totals.TotalTVA)
		assert.Equal(t, 120.00, totals.TotalTTC)
	})
}

func TestSumLines(t *testing.T) {
	t.Run("empty slice yields zero totals", func(t *testing.T) {
		totals := pricing.SumLines(nil)
		assert.Equal(t, 0.0, totals.SubtotalHT)
		assert.Equal(t, 0.0, totals.TotalTVA)
		assert.Equal(t, 0.0, totals.TotalTTC)
	})

	t.Run("two lines with different rates", func(t *testing.T) {
		lines := []domain.DocumentLine{
			{Quantity: floatPtr(2), UnitPriceHT: floatPtr(100), TaxRate: 0.2},
			{Quantity: floatPtr(1), UnitPriceHT: floatPtr(50), TaxRate: 0.1},
		}
		totals := pricing.SumLines(lines)
		assert.Equal(t, 250.00, totals.SubtotalHT)
		assert.Equal(t, 45.00, totals.TotalTVA)
		assert.Equal(t, 295.00, totals.TotalTTC)
	})

	t.Run("mixed tax rates per line", func(t *testing.T) {
		lines := []domain.DocumentLine{
			{Quantity: floatPtr(8), UnitPriceHT: floatPtr(55), TaxRate: 0.20},
			{Quantity: floatPtr(1), UnitPriceHT: floatPtr(1200), TaxRate: 0.10},
			{Quantity: floatPtr(20), UnitPriceHT: floatPtr(12.5), TaxRate: 0.055},
		}
		totals := pricing.SumLines(lines)
		assert.Equal(t, 1890.00, totals.SubtotalHT)
		// 88 + 120 + 13.75
		assert.Equal(t, 221.75, totals.TotalTVA)
		assert.Equal(t, 2111.75, totals.TotalTTC)
	})

	t.Run("sums unrounded values before rounding", func(t *testing.T) {
		// Each line is 0.333 HT: round-then-sum would give 100 * 0.33 = 33.00,
		// sum-then-round gives 33.30.
		lines := make([]domain.DocumentLine, 100)
		for i := range lines {
			lines[i] = domain.DocumentLine{
				Quantity:    floatPtr(1),
				UnitPriceHT: floatPtr(0.333),
				TaxRate:     0.20,
			}
		}
		totals := pricing.SumLines(lines)
		assert.Equal(t, 33.30, totals.SubtotalHT)
		assert.Equal(t, 6.66, totals.TotalTVA)
		assert.Equal(t, 39.96, totals.TotalTTC)
	})

	t.Run("ttc equals ht plus tva", func(t *testing.T) {
		lines := []domain.DocumentLine{
			{Quantity: floatPtr(7), UnitPriceHT: floatPtr(13.37), TaxRate: 0.20},
			{Quantity: floatPtr(2.5), UnitPriceHT: floatPtr(41.99), TaxRate: 0.10},
			{Quantity: floatPtr(0.75), UnitPriceHT: floatPtr(88.88), TaxRate: 0.055},
		}
		totals := pricing.SumLines(lines)
		assert.InDelta(t, totals.SubtotalHT+totals.TotalTVA, totals.TotalTTC, 1e-9)
	})

	t.Run("unpriced lines count as zero", func(t *testing.T) {
		lines := []domain.DocumentLine{
			{Quantity: floatPtr(5), UnitPriceHT: floatPtr(10), TaxRate: 0.20},
			{Label: "pending pricing", TaxRate: 0.20},
		}
		totals := pricing.SumLines(lines)
		assert.Equal(t, 50.00, totals.SubtotalHT)
		assert.Equal(t, 60.00, totals.TotalTTC)
	})
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 10.01, pricing.RoundCents(10.005))
	assert.Equal(t, 10.00, pricing.RoundCents(10.004))
	assert.Equal(t, 0.0, pricing.RoundCents(0))
	assert.Equal(t, -2.35, pricing.RoundCents(-2.345))
}
