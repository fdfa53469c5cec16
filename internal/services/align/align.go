package align

import (
	"fmt"
	"sort"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/util"

	"gonum.org/v1/gonum/interp"
)

// Stage name reported in alignment errors.
const Stage = "align"

// DefaultMinMonths is the minimum viable common window.
const DefaultMinMonths = 24

// Input carries the raw series and alignment parameters.
type Input struct {
	Series     map[string]models.RawSeries
	Required   []string // defaults to models.StudySeries()
	StudyStart time.Time
	MinMonths  int
}

// BuildPanel resamples every raw series onto a common month-end grid:
// daily and monthly series take the last observation per calendar month,
// quarterly series are interpolated with a natural cubic spline. The
// result is the inner join of all series, clipped to StudyStart. The
// output index is strictly increasing with no interior gaps; a window
// shorter than MinMonths fails with DataInsufficientError.
func BuildPanel(in Input) (*models.AlignedPanel, error) {
	required := in.Required
	if len(required) == 0 {
		required = models.StudySeries()
	}

	monthly := make(map[string]map[int]float64, len(required))
	for _, name := range required {
		rs, ok := in.Series[name]
		if !ok || rs.Empty() {
			return nil, &models.DataInsufficientError{Stage: Stage, Series: name}
		}
		var m map[int]float64
		var err error
		switch rs.Frequency {
		case models.FreqQuarterly:
			m, err = splineToMonthly(rs)
		default:
			m = lastPerMonth(rs)
		}
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			return nil, &models.DataInsufficientError{Stage: Stage, Series: name}
		}
		monthly[name] = m
	}

	keys := intersectKeys(monthly, required)
	if !in.StudyStart.IsZero() {
		startKey := util.MonthKey(in.StudyStart)
		trimmed := keys[:0]
		for _, k := range keys {
			if k >= startKey {
				trimmed = append(trimmed, k)
			}
		}
		keys = trimmed
	}
	// A series missing an interior month would leave a hole in the inner
	// join; keep only the longest contiguous run so the panel index never
	// has gaps.
	keys = longestRun(keys)

	minMonths := in.MinMonths
	if minMonths <= 0 {
		minMonths = DefaultMinMonths
	}
	if len(keys) < minMonths {
		return nil, &models.DataInsufficientError{Stage: Stage, Months: len(keys), Min: minMonths}
	}

	index := make([]time.Time, len(keys))
	for i, k := range keys {
		index[i] = util.MonthEndFromKey(k)
	}
	panel := models.NewAlignedPanel(index)
	for _, name := range required {
		col := make([]float64, len(keys))
		for i, k := range keys {
			col[i] = monthly[name][k]
		}
		panel.AddColumn(name, col)
	}
	return panel, nil
}

// lastPerMonth buckets points by calendar month, keeping the last
// observation of each month.
func lastPerMonth(rs models.RawSeries) map[int]float64 {
	pts := sortedPoints(rs)
	out := make(map[int]float64, len(pts))
	for _, p := range pts {
		out[util.MonthKey(p.Time)] = p.Value
	}
	return out
}

// splineToMonthly fits a natural cubic spline through the quarterly
// anchors and evaluates it at the first day of each month inside the
// anchor range, labelling values at month end. Anchor months reproduce
// the anchor values exactly.
func splineToMonthly(rs models.RawSeries) (map[int]float64, error) {
	pts := sortedPoints(rs)
	if len(pts) < 2 {
		return nil, &models.DataInsufficientError{Stage: Stage, Series: rs.Name}
	}

	xs := make([]float64, 0, len(pts))
	ys := make([]float64, 0, len(pts))
	for _, p := range pts {
		x := float64(p.Time.UTC().Unix())
		if len(xs) > 0 && x <= xs[len(xs)-1] {
			continue // drop duplicate timestamps
		}
		xs = append(xs, x)
		ys = append(ys, p.Value)
	}
	if len(xs) < 2 {
		return nil, &models.DataInsufficientError{Stage: Stage, Series: rs.Name}
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("%s: spline fit %s: %w", Stage, rs.Name, err)
	}

	first := pts[0].Time.UTC()
	last := pts[len(pts)-1].Time.UTC()
	out := make(map[int]float64)
	for key := util.MonthKey(first); key <= util.MonthKey(last); key++ {
		monthStart := time.Date(key/12, time.Month(key%12)+1, 1, 0, 0, 0, 0, time.UTC)
		x := float64(monthStart.Unix())
		if x < xs[0] || x > xs[len(xs)-1] {
			continue
		}
		out[key] = spline.Predict(x)
	}
	return out, nil
}

func sortedPoints(rs models.RawSeries) []models.Point {
	pts := make([]models.Point, len(rs.Points))
	copy(pts, rs.Points)
	sort.Slice(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
	return pts
}

// intersectKeys returns the sorted month keys present in every series.
func intersectKeys(monthly map[string]map[int]float64, names []string) []int {
	if len(names) == 0 {
		return nil
	}
	keys := make([]int, 0, len(monthly[names[0]]))
	for k := range monthly[names[0]] {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := keys[:0]
	for _, k := range keys {
		present := true
		for _, name := range names[1:] {
			if _, ok := monthly[name][k]; !ok {
				present = false
				break
			}
		}
		if present {
			out = append(out, k)
		}
	}
	return out
}

// longestRun returns the longest contiguous run of month keys, preferring
// the most recent run on ties.
func longestRun(keys []int) []int {
	if len(keys) == 0 {
		return keys
	}
	bestStart, bestLen := 0, 1
	runStart := 0
	for i := 1; i <= len(keys); i++ {
		if i == len(keys) || keys[i] != keys[i-1]+1 {
			if runLen := i - runStart; runLen >= bestLen {
				bestStart, bestLen = runStart, runLen
			}
			runStart = i
		}
	}
	return keys[bestStart : bestStart+bestLen]
}
