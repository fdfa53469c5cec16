package inference

import (
	"math"
	"sort"

	"MacroPull/internal/domain/models"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Median returns the middle value of xs (mean of the two middles for an
// even count).
func Median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// RegimeSplit partitions the frame by the composite's full-sample median.
// Values at or below the median go to the low group, so ties are assigned
// deterministically and group sizes are stable across reruns.
func RegimeSplit(composite []float64) (high, low []int, threshold float64) {
	threshold = Median(composite)
	for i, v := range composite {
		if v > threshold {
			high = append(high, i)
		} else {
			low = append(low, i)
		}
	}
	return high, low, threshold
}

// WelchTTest compares an asset's spread means across the two regimes
// using Welch's unequal-variance t statistic with Welch-Satterthwaite
// degrees of freedom.
func WelchTTest(asset string, spreads []float64, high, low []int, threshold float64) (models.RegimeTest, error) {
	if len(high) < 2 || len(low) < 2 {
		smaller := len(high)
		if len(low) < smaller {
			smaller = len(low)
		}
		return models.RegimeTest{}, &models.DataInsufficientError{
			Stage: Stage, Series: asset, Months: smaller, Min: 2,
		}
	}
	hs := gather(spreads, high)
	ls := gather(spreads, low)

	mh, vh := stat.MeanVariance(hs, nil)
	ml, vl := stat.MeanVariance(ls, nil)
	nh, nl := float64(len(hs)), float64(len(ls))

	seh := vh / nh
	sel := vl / nl
	diff := mh - ml
	tstat := 0.0
	pval := 1.0
	if seh+sel > 0 {
		se := seh + sel
		tstat = diff / math.Sqrt(se)
		dof := se * se / (seh*seh/(nh-1) + sel*sel/(nl-1))
		tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dof}
		pval = 2 * (1 - tdist.CDF(math.Abs(tstat)))
	}

	return models.RegimeTest{
		Asset:     asset,
		Threshold: threshold,
		HighN:     len(hs),
		LowN:      len(ls),
		HighMean:  mh,
		LowMean:   ml,
		MeanDiff:  diff,
		TStat:     tstat,
		PValue:    pval,
	}, nil
}

// RegimeTests runs the median split once and tests every asset against it.
func RegimeTests(spreads []*models.SpreadSeries, composite *models.CompositeScore) ([]models.RegimeTest, error) {
	high, low, threshold := RegimeSplit(composite.Values)
	out := make([]models.RegimeTest, 0, len(spreads))
	for _, s := range spreads {
		rt, err := WelchTTest(s.Asset, s.Spreads, high, low, threshold)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

func gather(xs []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}
