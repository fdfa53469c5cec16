package models

import "time"

// SpreadSeries is an asset's monthly log return minus the real cash return.
// Derived by the spread stage, never mutated after creation.
type SpreadSeries struct {
	Asset      string      `json:"asset"`
	Index      []time.Time `json:"index"`
	LogReturns []float64   `json:"log_returns"`
	Spreads    []float64   `json:"spreads"`
}

// CompositeScore is a single series summarizing the debasement indicators.
type CompositeScore struct {
	Method string      `json:"method"` // "z_average" or "pca"
	Index  []time.Time `json:"index"`
	Values []float64   `json:"values"`
}

// PCAResult exposes the fitted principal components of the standardized
// indicator matrix. Loading signs are arbitrary: LAPACK may flip any
// component, so consumers must not read economic meaning into the sign.
type PCAResult struct {
	Indicators        []string    `json:"indicators"`
	Index             []time.Time `json:"index"`
	VarianceFractions []float64   `json:"variance_fractions"` // all components, sum to 1
	Retained          int         `json:"retained"`
	Loadings          [][]float64 `json:"loadings"` // retained x indicator
	Scores            [][]float64 `json:"scores"`   // retained x time
}

// Coefficient is one estimated regressor in a fitted regression.
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	TStat    float64 `json:"t_stat"`
	PValue   float64 `json:"p_value"`
}

// Regression sample windows.
const (
	SampleFull      = "full"
	SamplePreBreak  = "pre_break"
	SamplePostBreak = "post_break"
	SampleRolling   = "rolling"
)

// RegressionResult is one fitted OLS regression with HAC standard
// errors. Produced once by the inference stage, read-only afterwards.
type RegressionResult struct {
	Asset        string        `json:"asset"`
	Sample       string        `json:"sample"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	N            int           `json:"n"`
	HACLags      int           `json:"hac_lags"`
	R2           float64       `json:"r2"`
	Coefficients []Coefficient `json:"coefficients"`
}

// Coefficient returns the named coefficient, if present.
func (r RegressionResult) Coefficient(name string) (Coefficient, bool) {
	for _, c := range r.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// RollingPoint is one trailing-window fit, stamped at the window's final
// month, with the confidence interval for the regressor of interest.
type RollingPoint struct {
	End      time.Time `json:"end"`
	Estimate float64   `json:"estimate"`
	StdErr   float64   `json:"std_err"`
	CILower  float64   `json:"ci_lower"`
	CIUpper  float64   `json:"ci_upper"`
	R2       float64   `json:"r2"`
}

// RollingRegression is the full rolling re-fit of one asset's spread.
type RollingRegression struct {
	Asset     string         `json:"asset"`
	Regressor string         `json:"regressor"`
	Window    int            `json:"window"`
	Level     float64        `json:"level"` // confidence level, e.g. 0.95
	Points    []RollingPoint `json:"points"`
}

// RegimeTest is Welch's unequal-variance t-test comparing an asset's
// spread means across high/low debasement regimes.
type RegimeTest struct {
	Asset     string  `json:"asset"`
	Threshold float64 `json:"threshold"` // full-sample composite median
	HighN     int     `json:"high_n"`
	LowN      int     `json:"low_n"`
	HighMean  float64 `json:"high_mean"`
	LowMean   float64 `json:"low_mean"`
	MeanDiff  float64 `json:"mean_diff"`
	TStat     float64 `json:"t_stat"`
	PValue    float64 `json:"p_value"`
}

// StudySnapshot is the complete output of one pipeline run. It is the
// renderer-agnostic contract consumed by the HTTP API and any downstream
// charting client.
type StudySnapshot struct {
	ComputedAt  time.Time           `json:"computed_at"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Months      int                 `json:"months"`
	Indicators  []string            `json:"indicators"`
	Panel       map[string][]float64 `json:"panel"`
	Index       []time.Time         `json:"index"`
	Spreads     []*SpreadSeries     `json:"spreads"`
	ZComposite  *CompositeScore     `json:"z_composite"`
	PCA         *PCAResult          `json:"pca"`
	PCAComposite *CompositeScore    `json:"pca_composite"`
	FullSample  []RegressionResult  `json:"full_sample"`
	Subsamples  []RegressionResult  `json:"subsamples"`
	Rolling     []*RollingRegression `json:"rolling"`
	Regimes     []RegimeTest        `json:"regimes"`
}
