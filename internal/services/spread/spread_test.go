package spread

import (
	"errors"
	"math"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
)

func frameIndex(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, i, 0)
	}
	return out
}

func TestRealCashZeroWhenRatesOffset(t *testing.T) {
	// Fed Funds at 2% and CPI YoY at 2% leave no real return on cash.
	n := 12
	ff := make([]float64, n)
	cpi := make([]float64, n)
	for i := range ff {
		ff[i] = 2.0
		cpi[i] = 2.0
	}
	rc, err := RealCashReturn(ff, cpi)
	if err != nil {
		t.Fatalf("RealCashReturn: %v", err)
	}
	for i, v := range rc {
		if v != 0 {
			t.Fatalf("real cash not zero at %d: %v", i, v)
		}
	}
}

func TestComputeEqualsRawReturnsWithZeroCash(t *testing.T) {
	// Scenario: zero real cash means the spread is the raw log return.
	prices := []float64{100, 110, 105, 120, 118}
	offset := 1
	n := len(prices) - offset
	index := frameIndex(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), n)
	rc := make([]float64, n)

	s, err := Compute("btc_usd", index, prices, offset, rc)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i := 0; i < n; i++ {
		want := math.Log(prices[offset+i] / prices[offset+i-1])
		if math.Abs(s.Spreads[i]-want) > 1e-12 {
			t.Fatalf("spread %d: got %v want %v", i, s.Spreads[i], want)
		}
	}
}

func TestComputeRoundTrip(t *testing.T) {
	prices := []float64{100, 104, 99, 107, 111, 108}
	offset := 1
	n := len(prices) - offset
	index := frameIndex(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), n)
	rc := []float64{0.001, -0.002, 0.0005, 0.003, -0.001}

	s, err := Compute("gold", index, prices, offset, rc)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	got := CumulativeLogReturn(s, rc)
	for i := 0; i < n; i++ {
		want := math.Log(prices[offset+i] / prices[offset-1])
		if math.Abs(got[i]-want) > 1e-12 {
			t.Fatalf("cumulative %d: got %v want %v", i, got[i], want)
		}
	}
}

func TestComputeRejectsNonPositivePrice(t *testing.T) {
	prices := []float64{100, 105, -3, 110}
	offset := 1
	n := len(prices) - offset
	index := frameIndex(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), n)
	rc := make([]float64, n)

	_, err := Compute("sp500", index, prices, offset, rc)
	var ipe *models.InvalidPriceError
	if !errors.As(err, &ipe) {
		t.Fatalf("expected InvalidPriceError, got %v", err)
	}
	if ipe.Series != "sp500" || ipe.Value != -3 {
		t.Fatalf("unexpected error detail: %+v", ipe)
	}
}

func TestComputeRejectsZeroOffset(t *testing.T) {
	prices := []float64{100, 105}
	index := frameIndex(time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), 2)
	if _, err := Compute("btc_usd", index, prices, 0, []float64{0, 0}); err == nil {
		t.Fatalf("expected error for offset 0: the undefined first row must be dropped")
	}
}
