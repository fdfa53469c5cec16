package spread

import (
	"fmt"
	"math"
	"time"

	"MacroPull/internal/domain/models"
)

// Stage name reported in spread errors.
const Stage = "spread"

// RealCashReturn converts annualized percent rates into the monthly real
// return of holding cash: (fedFunds - cpiYoY) / 12 / 100. Both inputs are
// percent, aligned to the study frame index.
func RealCashReturn(fedFundsPct, cpiYoYPct []float64) ([]float64, error) {
	if len(fedFundsPct) != len(cpiYoYPct) {
		return nil, fmt.Errorf("%s: real cash inputs differ in length: %d vs %d",
			Stage, len(fedFundsPct), len(cpiYoYPct))
	}
	out := make([]float64, len(fedFundsPct))
	for i := range fedFundsPct {
		out[i] = (fedFundsPct[i] - cpiYoYPct[i]) / 12 / 100
	}
	return out, nil
}

// Compute derives an asset's spread series over the study frame. prices
// is the full aligned price column; offset is the frame's first row in
// that column and must be at least 1 so every log return has a previous
// month. index is the frame index (len(prices)-offset entries). A
// non-positive price fails with InvalidPriceError naming the month.
func Compute(asset string, index []time.Time, prices []float64, offset int, realCash []float64) (*models.SpreadSeries, error) {
	if offset < 1 {
		return nil, fmt.Errorf("%s: offset must be >= 1 so the undefined first return is dropped, got %d", Stage, offset)
	}
	n := len(prices) - offset
	if n <= 0 {
		return nil, &models.DataInsufficientError{Stage: Stage, Series: asset}
	}
	if len(index) != n {
		return nil, fmt.Errorf("%s: index length %d does not match frame length %d", Stage, len(index), n)
	}
	if len(realCash) != n {
		return nil, fmt.Errorf("%s: real cash length %d does not match frame length %d", Stage, len(realCash), n)
	}

	rets := make([]float64, n)
	spreads := make([]float64, n)
	for i := 0; i < n; i++ {
		prev, cur := prices[offset+i-1], prices[offset+i]
		if prev <= 0 {
			return nil, &models.InvalidPriceError{Stage: Stage, Series: asset, Month: monthAt(index, i-1), Value: prev}
		}
		if cur <= 0 {
			return nil, &models.InvalidPriceError{Stage: Stage, Series: asset, Month: index[i], Value: cur}
		}
		rets[i] = math.Log(cur / prev)
		spreads[i] = rets[i] - realCash[i]
	}

	return &models.SpreadSeries{
		Asset:      asset,
		Index:      index,
		LogReturns: rets,
		Spreads:    spreads,
	}, nil
}

// monthAt resolves the month of a price one row before the frame start.
func monthAt(index []time.Time, i int) time.Time {
	if i >= 0 {
		return index[i]
	}
	// price precedes the frame; step back from the first frame month
	return index[0].AddDate(0, -1, 0)
}

// CumulativeLogReturn reconstructs the cumulative log return from a
// spread series plus the real cash series it was derived against.
func CumulativeLogReturn(s *models.SpreadSeries, realCash []float64) []float64 {
	out := make([]float64, len(s.Spreads))
	sum := 0.0
	for i, v := range s.Spreads {
		sum += v + realCash[i]
		out[i] = sum
	}
	return out
}
