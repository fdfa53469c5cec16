package inference

import (
	"fmt"
	"time"

	"MacroPull/internal/domain/models"

	"gonum.org/v1/gonum/stat/distuv"
)

// Defaults matching the reference study: 12 HAC lags for monthly
// persistence, 36-month trailing windows, 95% confidence intervals.
const (
	DefaultHACLags = 12
	DefaultWindow  = 36
	DefaultLevel   = 0.95
)

// Options parameterizes the inference stage.
type Options struct {
	HACLags   int
	Window    int
	Level     float64
	BreakDate time.Time
	Target    string // regressor of interest for rolling CIs; defaults to the first regressor
}

func (o Options) withDefaults() Options {
	if o.HACLags <= 0 {
		o.HACLags = DefaultHACLags
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Level <= 0 || o.Level >= 1 {
		o.Level = DefaultLevel
	}
	return o
}

func toResult(asset, sample string, index []time.Time, from, to, hacLags int, fr *fitResult) models.RegressionResult {
	res := models.RegressionResult{
		Asset:   asset,
		Sample:  sample,
		Start:   index[from],
		End:     index[to-1],
		N:       fr.n,
		HACLags: hacLags,
		R2:      fr.r2,
	}
	for j, name := range fr.names {
		res.Coefficients = append(res.Coefficients, models.Coefficient{
			Name:     name,
			Estimate: fr.beta[j],
			StdErr:   fr.se[j],
			TStat:    fr.tstat[j],
			PValue:   fr.pval[j],
		})
	}
	return res
}

// FullSample regresses each asset's spread on the regressors over the
// whole frame with HAC standard errors.
func FullSample(spreads []*models.SpreadSeries, reg Regressors, opts Options) ([]models.RegressionResult, error) {
	opts = opts.withDefaults()
	out := make([]models.RegressionResult, 0, len(spreads))
	for _, s := range spreads {
		fr, err := fit(s.Spreads, reg, 0, len(s.Spreads), opts.HACLags)
		if err != nil {
			return nil, fmt.Errorf("full-sample %s: %w", s.Asset, err)
		}
		out = append(out, toResult(s.Asset, models.SampleFull, s.Index, 0, len(s.Spreads), opts.HACLags, fr))
	}
	return out, nil
}

// Subsample re-fits the same regression independently on the pre- and
// post-break partitions; no pooling.
func Subsample(spreads []*models.SpreadSeries, reg Regressors, opts Options) ([]models.RegressionResult, error) {
	opts = opts.withDefaults()
	if opts.BreakDate.IsZero() {
		return nil, fmt.Errorf("%s: subsample requires a break date", Stage)
	}
	out := make([]models.RegressionResult, 0, 2*len(spreads))
	for _, s := range spreads {
		split := len(s.Index)
		for i, ts := range s.Index {
			if ts.After(opts.BreakDate) {
				split = i
				break
			}
		}
		pre, err := fit(s.Spreads, reg, 0, split, opts.HACLags)
		if err != nil {
			return nil, fmt.Errorf("pre-break %s: %w", s.Asset, err)
		}
		post, err := fit(s.Spreads, reg, split, len(s.Spreads), opts.HACLags)
		if err != nil {
			return nil, fmt.Errorf("post-break %s: %w", s.Asset, err)
		}
		out = append(out,
			toResult(s.Asset, models.SamplePreBreak, s.Index, 0, split, opts.HACLags, pre),
			toResult(s.Asset, models.SamplePostBreak, s.Index, split, len(s.Spreads), opts.HACLags, post),
		)
	}
	return out, nil
}

// Rolling re-fits the regression on every trailing window, sliding one
// month at a time. It produces exactly n-window+1 points, each stamped at
// the window's final month with the confidence interval for the target
// regressor.
func Rolling(s *models.SpreadSeries, reg Regressors, opts Options) (*models.RollingRegression, error) {
	opts = opts.withDefaults()
	target := opts.Target
	if target == "" && len(reg.Names) > 0 {
		target = reg.Names[0]
	}
	n := len(s.Spreads)
	w := opts.Window
	if n < w {
		return nil, &models.DataInsufficientError{Stage: Stage, Months: n, Min: w}
	}

	rr := &models.RollingRegression{
		Asset:     s.Asset,
		Regressor: target,
		Window:    w,
		Level:     opts.Level,
	}
	for from := 0; from+w <= n; from++ {
		fr, err := fit(s.Spreads, reg, from, from+w, opts.HACLags)
		if err != nil {
			return nil, fmt.Errorf("rolling %s window ending %s: %w",
				s.Asset, s.Index[from+w-1].Format("2006-01"), err)
		}
		j := indexOf(fr.names, target)
		if j < 0 {
			return nil, fmt.Errorf("%s: unknown rolling target %q", Stage, target)
		}
		tcrit := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: fr.dof}.Quantile(0.5 + opts.Level/2)
		rr.Points = append(rr.Points, models.RollingPoint{
			End:      s.Index[from+w-1],
			Estimate: fr.beta[j],
			StdErr:   fr.se[j],
			CILower:  fr.beta[j] - tcrit*fr.se[j],
			CIUpper:  fr.beta[j] + tcrit*fr.se[j],
			R2:       fr.r2,
		})
	}
	return rr, nil
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
