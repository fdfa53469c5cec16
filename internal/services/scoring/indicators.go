package scoring

import (
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
)

// Stage name reported in scoring errors.
const Stage = "scoring"

// YoYLookback is the number of months a year-over-year change looks back.
const YoYLookback = 12

// Indicator enumerates the debasement indicators that can feed scoring.
// Selection is explicit configuration, never reflection over columns.
type Indicator string

const (
	IndM2YoY        Indicator = "m2_yoy_pct"
	IndCPIYoY       Indicator = "cpi_yoy_pct"
	IndRealM2Growth Indicator = "real_m2_growth"
	IndM2ToGDP      Indicator = "m2_to_gdp"
)

// DefaultIndicators returns the four indicators of the reference study.
func DefaultIndicators() []Indicator {
	return []Indicator{IndM2YoY, IndCPIYoY, IndRealM2Growth, IndM2ToGDP}
}

// ParseIndicators validates configured indicator names.
func ParseIndicators(names []string) ([]Indicator, error) {
	if len(names) == 0 {
		return DefaultIndicators(), nil
	}
	out := make([]Indicator, 0, len(names))
	for _, n := range names {
		ind := Indicator(n)
		switch ind {
		case IndM2YoY, IndCPIYoY, IndRealM2Growth, IndM2ToGDP:
			out = append(out, ind)
		default:
			return nil, fmt.Errorf("%s: unknown indicator %q", Stage, n)
		}
	}
	return out, nil
}

// IndicatorPanel holds the selected indicator columns over the study
// frame index (the aligned panel minus the YoY lookback rows).
type IndicatorPanel struct {
	Index   []time.Time
	Names   []string
	Columns [][]float64 // indicator-major, each len(Index)
}

// YoYPercent computes the 12-month percent change: (x[t]/x[t-12]-1)*100.
// The output starts at the lookback offset and has len(values)-lookback
// entries; leading rows without a lookback are dropped, not filled.
func YoYPercent(values []float64, lookback int) []float64 {
	if len(values) <= lookback {
		return nil
	}
	out := make([]float64, len(values)-lookback)
	for i := lookback; i < len(values); i++ {
		out[i-lookback] = (values[i]/values[i-lookback] - 1) * 100
	}
	return out
}

// ComputeIndicators derives the selected raw indicators from the aligned
// panel. The frame starts YoYLookback rows into the panel so every
// year-over-year value is defined.
func ComputeIndicators(p *models.AlignedPanel, set []Indicator) (*IndicatorPanel, error) {
	if len(set) == 0 {
		set = DefaultIndicators()
	}
	if p.Len() <= YoYLookback {
		return nil, &models.DataInsufficientError{Stage: Stage, Months: p.Len(), Min: YoYLookback + 1}
	}
	m2, ok := p.Column(models.SeriesM2)
	if !ok {
		return nil, &models.DataInsufficientError{Stage: Stage, Series: models.SeriesM2}
	}
	cpi, ok := p.Column(models.SeriesCPI)
	if !ok {
		return nil, &models.DataInsufficientError{Stage: Stage, Series: models.SeriesCPI}
	}

	m2YoY := YoYPercent(m2, YoYLookback)
	cpiYoY := YoYPercent(cpi, YoYLookback)
	n := len(m2YoY)

	ip := &IndicatorPanel{Index: p.Index[YoYLookback:]}
	for _, ind := range set {
		var col []float64
		switch ind {
		case IndM2YoY:
			col = m2YoY
		case IndCPIYoY:
			col = cpiYoY
		case IndRealM2Growth:
			col = make([]float64, n)
			for i := range col {
				col[i] = m2YoY[i] - cpiYoY[i]
			}
		case IndM2ToGDP:
			gdp, ok := p.Column(models.SeriesGDP)
			if !ok {
				return nil, &models.DataInsufficientError{Stage: Stage, Series: models.SeriesGDP}
			}
			col = make([]float64, n)
			for i := range col {
				col[i] = m2[YoYLookback+i] / gdp[YoYLookback+i]
			}
		default:
			return nil, fmt.Errorf("%s: unknown indicator %q", Stage, ind)
		}
		ip.Names = append(ip.Names, string(ind))
		ip.Columns = append(ip.Columns, col)
	}
	return ip, nil
}
