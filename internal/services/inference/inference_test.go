package inference

import (
	"errors"
	"math"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
)

func frameIndex(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2015, 1, 31, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, i, 0)
	}
	return out
}

func spreadSeries(asset string, values []float64) *models.SpreadSeries {
	return &models.SpreadSeries{
		Asset:   asset,
		Index:   frameIndex(len(values)),
		Spreads: values,
	}
}

// noisyLinear builds y = a + b*x + deterministic bounded noise.
func noisyLinear(x []float64, a, b, amp float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = a + b*x[i] + amp*math.Sin(float64(i)*1.7)
	}
	return out
}

func TestFullSampleRecoversExactFit(t *testing.T) {
	n := 60
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(float64(i) * 0.7)
	}
	y := noisyLinear(x, 0.5, 2.0, 0)

	res, err := FullSample(
		[]*models.SpreadSeries{spreadSeries("btc_usd", y)},
		Regressors{Names: []string{"score"}, Columns: [][]float64{x}},
		Options{},
	)
	if err != nil {
		t.Fatalf("FullSample: %v", err)
	}
	r := res[0]
	if r.Sample != models.SampleFull || r.N != n || r.HACLags != DefaultHACLags {
		t.Fatalf("unexpected result meta: %+v", r)
	}
	c, ok := r.Coefficient("score")
	if !ok {
		t.Fatalf("missing score coefficient")
	}
	if math.Abs(c.Estimate-2.0) > 1e-9 {
		t.Fatalf("slope: got %v want 2.0", c.Estimate)
	}
	ic, _ := r.Coefficient(InterceptName)
	if math.Abs(ic.Estimate-0.5) > 1e-9 {
		t.Fatalf("intercept: got %v want 0.5", ic.Estimate)
	}
	if math.Abs(r.R2-1.0) > 1e-9 {
		t.Fatalf("R2: got %v want 1", r.R2)
	}
}

func TestFullSampleStrongRelationIsSignificant(t *testing.T) {
	n := 80
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(float64(i) * 0.9)
	}
	y := noisyLinear(x, 0, 3.0, 0.05)

	res, err := FullSample(
		[]*models.SpreadSeries{spreadSeries("gold", y)},
		Regressors{Names: []string{"score"}, Columns: [][]float64{x}},
		Options{},
	)
	if err != nil {
		t.Fatalf("FullSample: %v", err)
	}
	c, _ := res[0].Coefficient("score")
	if c.StdErr <= 0 {
		t.Fatalf("expected positive standard error")
	}
	if c.PValue > 0.01 {
		t.Fatalf("expected significant slope, p=%v", c.PValue)
	}
}

func TestFullSampleZeroCorrelation(t *testing.T) {
	// Pair-balanced construction: composite steps in pairs while the
	// spread alternates inside each pair, so their covariance is exactly
	// zero and the fit explains nothing.
	n := 40
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i/2 + 1)
		if i%2 == 0 {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}
	res, err := FullSample(
		[]*models.SpreadSeries{spreadSeries("sp500", y)},
		Regressors{Names: []string{"score"}, Columns: [][]float64{x}},
		Options{},
	)
	if err != nil {
		t.Fatalf("FullSample: %v", err)
	}
	if math.Abs(res[0].R2) > 1e-9 {
		t.Fatalf("R2: got %v want 0", res[0].R2)
	}
	c, _ := res[0].Coefficient("score")
	if math.Abs(c.Estimate) > 1e-9 {
		t.Fatalf("slope: got %v want 0", c.Estimate)
	}
}

func TestFullSampleSingularDesign(t *testing.T) {
	n := 50
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	_, err := FullSample(
		[]*models.SpreadSeries{spreadSeries("btc_usd", x)},
		Regressors{Names: []string{"a", "b"}, Columns: [][]float64{x, x}},
		Options{},
	)
	var sme *models.SingularMatrixError
	if !errors.As(err, &sme) {
		t.Fatalf("expected SingularMatrixError, got %v", err)
	}
}

func TestSubsamplePartitions(t *testing.T) {
	n := 72
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(float64(i) * 0.5)
	}
	y := noisyLinear(x, 0.1, 1.5, 0.02)
	s := spreadSeries("btc_usd", y)
	breakDate := s.Index[35]

	res, err := Subsample(
		[]*models.SpreadSeries{s},
		Regressors{Names: []string{"score"}, Columns: [][]float64{x}},
		Options{BreakDate: breakDate},
	)
	if err != nil {
		t.Fatalf("Subsample: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	pre, post := res[0], res[1]
	if pre.Sample != models.SamplePreBreak || post.Sample != models.SamplePostBreak {
		t.Fatalf("unexpected samples: %s %s", pre.Sample, post.Sample)
	}
	if pre.End.After(breakDate) {
		t.Fatalf("pre partition leaks past break date")
	}
	if !post.Start.After(breakDate) {
		t.Fatalf("post partition overlaps break date")
	}
	if pre.N+post.N != n {
		t.Fatalf("partitions do not cover sample: %d + %d != %d", pre.N, post.N, n)
	}
}

func TestRollingCount(t *testing.T) {
	n := 60
	w := 36
	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(float64(i) * 0.3)
	}
	y := noisyLinear(x, 0, 1.0, 0.1)

	rr, err := Rolling(
		spreadSeries("gold", y),
		Regressors{Names: []string{"score"}, Columns: [][]float64{x}},
		Options{Window: w},
	)
	if err != nil {
		t.Fatalf("Rolling: %v", err)
	}
	if len(rr.Points) != n-w+1 {
		t.Fatalf("points: got %d want %d", len(rr.Points), n-w+1)
	}
	for _, p := range rr.Points {
		if p.CILower > p.Estimate || p.CIUpper < p.Estimate {
			t.Fatalf("confidence interval does not bracket estimate at %v", p.End)
		}
	}
	if !rr.Points[0].End.Equal(frameIndex(n)[w-1]) {
		t.Fatalf("first point stamped at %v, want window end", rr.Points[0].End)
	}
}

func TestRollingTooShort(t *testing.T) {
	x := make([]float64, 10)
	_, err := Rolling(
		spreadSeries("gold", x),
		Regressors{Names: []string{"score"}, Columns: [][]float64{x}},
		Options{Window: 36},
	)
	var die *models.DataInsufficientError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataInsufficientError, got %v", err)
	}
}

func TestRegimeSplitSizesAndTies(t *testing.T) {
	composite := []float64{1, 1, 2, 2, 3, 3, 4, 4}
	high, low, threshold := RegimeSplit(composite)
	if len(high)+len(low) != len(composite) {
		t.Fatalf("group sizes do not sum to sample size")
	}
	if threshold != 2.5 {
		t.Fatalf("threshold: got %v want 2.5", threshold)
	}
	// values at the median go to the low group
	allEqual := []float64{5, 5, 5, 5}
	high, low, _ = RegimeSplit(allEqual)
	if len(high) != 0 || len(low) != 4 {
		t.Fatalf("ties must all land in the low group: high=%d low=%d", len(high), len(low))
	}
}

func TestWelchTTestNoDifference(t *testing.T) {
	// Composite rises in pairs, spread alternates inside pairs: both
	// regime groups see identical means, so the test cannot reject.
	n := 40
	composite := make([]float64, n)
	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		composite[i] = float64(i/2 + 1)
		if i%2 == 0 {
			spread[i] = 1
		} else {
			spread[i] = -1
		}
	}
	tests, err := RegimeTests(
		[]*models.SpreadSeries{spreadSeries("btc_usd", spread)},
		&models.CompositeScore{Method: "z_average", Index: frameIndex(n), Values: composite},
	)
	if err != nil {
		t.Fatalf("RegimeTests: %v", err)
	}
	rt := tests[0]
	if rt.HighN+rt.LowN != n {
		t.Fatalf("group sizes do not sum: %d + %d", rt.HighN, rt.LowN)
	}
	if math.Abs(rt.MeanDiff) > 1e-12 {
		t.Fatalf("mean diff: got %v want 0", rt.MeanDiff)
	}
	if rt.PValue < 0.5 {
		t.Fatalf("p-value: got %v, expected no evidence of difference", rt.PValue)
	}
}

func TestWelchTTestSeparatedGroups(t *testing.T) {
	n := 40
	composite := make([]float64, n)
	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		composite[i] = float64(i)
		base := 0.001 * math.Sin(float64(i)*2.1)
		if i >= n/2 {
			spread[i] = 0.05 + base
		} else {
			spread[i] = -0.05 + base
		}
	}
	tests, err := RegimeTests(
		[]*models.SpreadSeries{spreadSeries("btc_usd", spread)},
		&models.CompositeScore{Method: "z_average", Index: frameIndex(n), Values: composite},
	)
	if err != nil {
		t.Fatalf("RegimeTests: %v", err)
	}
	rt := tests[0]
	if rt.MeanDiff <= 0 {
		t.Fatalf("expected positive mean difference, got %v", rt.MeanDiff)
	}
	if rt.PValue > 0.01 {
		t.Fatalf("expected significant difference, p=%v", rt.PValue)
	}
}

func TestMedianOddEven(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("odd median: got %v", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median: got %v", got)
	}
}
