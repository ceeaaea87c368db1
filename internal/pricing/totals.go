package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/chantierflow/commerce-api/internal/domain"
)

// LineTotals holds the computed amounts for a single document line,
// rounded to cents.
type LineTotals struct {
	TotalHT  float64
	TotalTVA float64
	TotalTTC float64
}

// DocumentTotals holds the aggregated amounts for a document. Totals are
// summed over the exact per-line values and rounded once at the end, so
// SubtotalHT + TotalTVA always equals TotalTTC.
type DocumentTotals struct {
	SubtotalHT float64
	TotalTVA   float64
	TotalTTC   float64
}

// lineAmounts returns the unrounded HT and TVA amounts for a line.
// Missing quantity or unit price counts as zero.
func lineAmounts(line *domain.DocumentLine) (ht, tva decimal.Decimal) {
	if line.Quantity == nil || line.UnitPriceHT == nil {
		return decimal.Zero, decimal.Zero
	}
	qty := decimal.NewFromFloat(*line.Quantity)
	price := decimal.NewFromFloat(*line.UnitPriceHT)
	rate := decimal.NewFromFloat(line.TaxRate)

	ht = qty.Mul(price)
	tva = ht.Mul(rate)
	return ht, tva
}

// ComputeLineTotals computes the rounded amounts for a single line.
// TotalTTC is the sum of the rounded HT and TVA so the three fields
// stay consistent.
func ComputeLineTotals(line *domain.DocumentLine) LineTotals {
	ht, tva := lineAmounts(line)
	htR := ht.Round(2)
	tvaR := tva.Round(2)
	return LineTotals{
		TotalHT:  toFloat(htR),
		TotalTVA: toFloat(tvaR),
		TotalTTC: toFloat(htR.Add(tvaR)),
	}
}

// SumLines aggregates document totals over all lines. An empty slice
// yields zero totals.
func SumLines(lines []domain.DocumentLine) DocumentTotals {
	sumHT := decimal.Zero
	sumTVA := decimal.Zero
	for i := range lines {
		ht, tva := lineAmounts(&lines[i])
		sumHT = sumHT.Add(ht)
		sumTVA = sumTVA.Add(tva)
	}
	htR := sumHT.Round(2)
	tvaR := sumTVA.Round(2)
	return DocumentTotals{
		SubtotalHT: toFloat(htR),
		TotalTVA:   toFloat(tvaR),
		TotalTTC:   toFloat(htR.Add(tvaR)),
	}
}

// RoundCents rounds a monetary amount to two decimal places.
func RoundCents(v float64) float64 {
	return toFloat(decimal.NewFromFloat(v).Round(2))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
