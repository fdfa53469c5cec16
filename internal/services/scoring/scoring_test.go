package scoring

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

// hadamard8 returns four mutually orthogonal, zero-mean sign columns.
func hadamard8() [][]float64 {
	return [][]float64{
		{1, -1, 1, -1, 1, -1, 1, -1},
		{1, 1, -1, -1, 1, 1, -1, -1},
		{1, 1, 1, 1, -1, -1, -1, -1},
		{1, -1, -1, 1, 1, -1, -1, 1},
	}
}

func TestYoYPercent(t *testing.T) {
	values := make([]float64, 24)
	for i := range values {
		values[i] = 100 * math.Pow(1.02, float64(i)/12)
	}
	yoy := YoYPercent(values, 12)
	if len(yoy) != 12 {
		t.Fatalf("expected 12 values, got %d", len(yoy))
	}
	for i, v := range yoy {
		if math.Abs(v-2.0) > 1e-9 {
			t.Fatalf("yoy %d: got %v want 2.0", i, v)
		}
	}
}

func TestComputeIndicatorsDropsLookbackRows(t *testing.T) {
	n := 30
	index := make([]time.Time, n)
	start := time.Date(2014, 1, 31, 0, 0, 0, 0, time.UTC)
	m2 := make([]float64, n)
	cpi := make([]float64, n)
	gdp := make([]float64, n)
	for i := 0; i < n; i++ {
		index[i] = start.AddDate(0, i, 0)
		m2[i] = 15000 * math.Pow(1.06, float64(i)/12)
		cpi[i] = 230 * math.Pow(1.03, float64(i)/12)
		gdp[i] = 17000 + 30*float64(i)
	}
	p := models.NewAlignedPanel(index)
	p.AddColumn(models.SeriesM2, m2)
	p.AddColumn(models.SeriesCPI, cpi)
	p.AddColumn(models.SeriesGDP, gdp)

	ip, err := ComputeIndicators(p, nil)
	if err != nil {
		t.Fatalf("ComputeIndicators: %v", err)
	}
	if len(ip.Index) != n-YoYLookback {
		t.Fatalf("frame length: got %d want %d", len(ip.Index), n-YoYLookback)
	}
	if len(ip.Names) != 4 {
		t.Fatalf("expected 4 indicators, got %v", ip.Names)
	}
	// real M2 growth is M2 YoY minus CPI YoY
	for i := range ip.Index {
		want := ip.Columns[0][i] - ip.Columns[1][i]
		if math.Abs(ip.Columns[2][i]-want) > 1e-9 {
			t.Fatalf("real m2 growth mismatch at %d", i)
		}
	}
}

func TestStandardizeConstantColumn(t *testing.T) {
	ip := &IndicatorPanel{
		Index:   frameIndex(10),
		Names:   []string{"m2_yoy_pct"},
		Columns: [][]float64{{3, 3, 3, 3, 3, 3, 3, 3, 3, 3}},
	}
	_, err := Standardize(ip)
	var sme *models.SingularMatrixError
	if !errors.As(err, &sme) {
		t.Fatalf("expected SingularMatrixError, got %v", err)
	}
}

func TestZAverageOfStandardizedColumns(t *testing.T) {
	cols := hadamard8()
	ip := &IndicatorPanel{
		Index:   frameIndex(8),
		Names:   []string{"a", "b", "c", "d"},
		Columns: cols,
	}
	comp := ZAverage(ip)
	for i := range comp.Values {
		want := (cols[0][i] + cols[1][i] + cols[2][i] + cols[3][i]) / 4
		if math.Abs(comp.Values[i]-want) > 1e-12 {
			t.Fatalf("composite %d: got %v want %v", i, comp.Values[i], want)
		}
	}
}

func TestFitPCAOrthogonalEqualVariance(t *testing.T) {
	// Orthogonal columns with identical variance split the variance
	// evenly: each component explains 25%, whatever basis is returned.
	ip := &IndicatorPanel{
		Index:   frameIndex(8),
		Names:   []string{"a", "b", "c", "d"},
		Columns: hadamard8(),
	}
	res, err := FitPCA(ip, 1.0)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	sum := 0.0
	for _, f := range res.VarianceFractions {
		if f < 0 {
			t.Fatalf("negative variance fraction %v", f)
		}
		if math.Abs(f-0.25) > 1e-9 {
			t.Fatalf("fraction: got %v want 0.25", f)
		}
		sum += f
	}
	if sum > 1+1e-9 {
		t.Fatalf("fractions sum %v exceeds 1", sum)
	}
}

func TestFitPCAOrthogonalDistinctVariance(t *testing.T) {
	// Distinct variances on orthogonal axes pin each component to one
	// indicator; loadings are a signed identity permutation.
	base := hadamard8()
	scales := []float64{4, 3, 2, 1}
	cols := make([][]float64, 4)
	for j := range base {
		cols[j] = make([]float64, len(base[j]))
		for i := range base[j] {
			cols[j][i] = scales[j] * base[j][i]
		}
	}
	ip := &IndicatorPanel{
		Index:   frameIndex(8),
		Names:   []string{"a", "b", "c", "d"},
		Columns: cols,
	}
	res, err := FitPCA(ip, 1.0)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if res.Retained != 4 {
		t.Fatalf("expected 4 retained components, got %d", res.Retained)
	}
	for c, loading := range res.Loadings {
		for j, v := range loading {
			want := 0.0
			if j == c {
				want = 1.0
			}
			if math.Abs(math.Abs(v)-want) > 1e-8 {
				t.Fatalf("component %d loading %d: got %v", c, j, v)
			}
		}
	}
}

func TestFitPCASignInvariantScores(t *testing.T) {
	// Flipping an indicator's sign flips at most component signs; the
	// explained-variance fractions are unchanged.
	base := hadamard8()
	ip := &IndicatorPanel{Index: frameIndex(8), Names: []string{"a", "b", "c", "d"}, Columns: base}
	flipped := make([][]float64, 4)
	for j := range base {
		flipped[j] = make([]float64, len(base[j]))
		for i := range base[j] {
			flipped[j][i] = -base[j][i]
		}
	}
	ipFlip := &IndicatorPanel{Index: frameIndex(8), Names: ip.Names, Columns: flipped}

	a, err := FitPCA(ip, 1.0)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	b, err := FitPCA(ipFlip, 1.0)
	if err != nil {
		t.Fatalf("FitPCA flipped: %v", err)
	}
	for i := range a.VarianceFractions {
		if math.Abs(a.VarianceFractions[i]-b.VarianceFractions[i]) > 1e-9 {
			t.Fatalf("variance fractions changed under sign flip")
		}
	}
}

func TestFitPCARetainsByThreshold(t *testing.T) {
	base := hadamard8()
	scales := []float64{10, 5, 0.1, 0.1}
	cols := make([][]float64, 4)
	for j := range base {
		cols[j] = make([]float64, len(base[j]))
		for i := range base[j] {
			cols[j][i] = scales[j] * base[j][i]
		}
	}
	ip := &IndicatorPanel{Index: frameIndex(8), Names: []string{"a", "b", "c", "d"}, Columns: cols}
	res, err := FitPCA(ip, 0.95)
	if err != nil {
		t.Fatalf("FitPCA: %v", err)
	}
	if res.Retained != 2 {
		t.Fatalf("expected 2 retained components, got %d", res.Retained)
	}
	if len(res.Scores) != 2 || len(res.Loadings) != 2 {
		t.Fatalf("retained outputs mismatch")
	}
}
