package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	domsvc "MacroPull/internal/domain/service"
	icache "MacroPull/internal/service/cache"
	smetrics "MacroPull/internal/service/metrics"
	"MacroPull/internal/services/align"
	"MacroPull/internal/services/inference"
	"MacroPull/internal/services/scoring"
	"MacroPull/internal/services/spread"
	applogger "MacroPull/pkg/logger"
)

const snapshotCacheKey = "macropull:study:snapshot"

// StudyConfig parameterizes one pipeline run.
type StudyConfig struct {
	Start             time.Time
	BreakDate         time.Time
	MinMonths         int
	HACLags           int
	Window            int
	Level             float64
	VarianceThreshold float64
	Indicators        []string
	CacheTTL          time.Duration
}

// StudyRunner executes the four-stage pipeline end to end and serves the
// latest snapshot. It implements service.SnapshotProvider.
type StudyRunner struct {
	reader  drepo.SeriesReader
	results drepo.ResultStore // optional
	cache   icache.BytesCache // optional
	log     *applogger.Logger
	cfg     StudyConfig

	mu   sync.RWMutex
	snap *models.StudySnapshot
}

// NewStudyRunner wires the pipeline. results and cache may be nil.
func NewStudyRunner(reader drepo.SeriesReader, results drepo.ResultStore, cache icache.BytesCache, log *applogger.Logger, cfg StudyConfig) *StudyRunner {
	if cfg.VarianceThreshold <= 0 || cfg.VarianceThreshold > 1 {
		cfg.VarianceThreshold = scoring.DefaultVarianceThreshold
	}
	return &StudyRunner{reader: reader, results: results, cache: cache, log: log, cfg: cfg}
}

// Snapshot returns the latest computed snapshot, falling back to the
// byte cache and finally to a fresh run.
func (r *StudyRunner) Snapshot(ctx context.Context) (*models.StudySnapshot, error) {
	r.mu.RLock()
	snap := r.snap
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	if r.cache != nil {
		if b, ok, err := r.cache.GetBytes(snapshotCacheKey); err == nil && ok {
			var cached models.StudySnapshot
			if err := json.Unmarshal(b, &cached); err == nil {
				r.mu.Lock()
				r.snap = &cached
				r.mu.Unlock()
				return &cached, nil
			}
		}
	}

	return r.Refresh(ctx)
}

// Refresh recomputes the snapshot from storage.
func (r *StudyRunner) Refresh(ctx context.Context) (*models.StudySnapshot, error) {
	snap, err := r.run(ctx)
	if err != nil {
		smetrics.StudyRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	smetrics.StudyRuns.WithLabelValues("ok").Inc()

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()

	if r.cache != nil {
		if b, err := json.Marshal(snap); err == nil {
			_ = r.cache.SetBytes(snapshotCacheKey, b, r.cfg.CacheTTL)
		}
	}
	if r.results != nil {
		all := append(append([]models.RegressionResult(nil), snap.FullSample...), snap.Subsamples...)
		if err := r.results.StoreRegressions(ctx, snap.ComputedAt, all); err != nil {
			r.log.Warn("persist regressions failed", applogger.Error(err))
		}
		if err := r.results.StoreRegimes(ctx, snap.ComputedAt, snap.Regimes); err != nil {
			r.log.Warn("persist regime tests failed", applogger.Error(err))
		}
	}
	return snap, nil
}

func (r *StudyRunner) run(ctx context.Context) (*models.StudySnapshot, error) {
	// stage 1: alignment
	stage := time.Now()
	raw, err := r.reader.GetAllSeries(ctx, models.StudySeries(), r.cfg.Start, time.Now().UTC())
	if err != nil {
		smetrics.StudyErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("read series: %w", err)
	}
	panel, err := align.BuildPanel(align.Input{
		Series:     raw,
		StudyStart: r.cfg.Start,
		MinMonths:  r.cfg.MinMonths,
	})
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(align.Stage).Inc()
		return nil, err
	}
	smetrics.StudyStageLatency.WithLabelValues(align.Stage).Observe(time.Since(stage).Seconds())

	// stage 3 runs before stage 2 here: the indicator frame fixes the
	// YoY offset every later series shares, and real cash needs CPI YoY.
	stage = time.Now()
	indSet, err := scoring.ParseIndicators(r.cfg.Indicators)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(scoring.Stage).Inc()
		return nil, err
	}
	ip, err := scoring.ComputeIndicators(panel, indSet)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(scoring.Stage).Inc()
		return nil, err
	}
	zp, err := scoring.Standardize(ip)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(scoring.Stage).Inc()
		return nil, err
	}
	zComposite := scoring.ZAverage(zp)
	pca, err := scoring.FitPCA(zp, r.cfg.VarianceThreshold)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(scoring.Stage).Inc()
		return nil, err
	}
	pcaComposite := scoring.PCAComposite(pca)
	smetrics.StudyStageLatency.WithLabelValues(scoring.Stage).Observe(time.Since(stage).Seconds())

	// stage 2: spreads over the indicator frame
	stage = time.Now()
	cpi, _ := panel.Column(models.SeriesCPI)
	fedFunds, _ := panel.Column(models.SeriesFedFunds)
	cpiYoY := scoring.YoYPercent(cpi, scoring.YoYLookback)
	realCash, err := spread.RealCashReturn(fedFunds[scoring.YoYLookback:], cpiYoY)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(spread.Stage).Inc()
		return nil, err
	}
	spreads := make([]*models.SpreadSeries, 0, len(models.AssetSeries()))
	for _, asset := range models.AssetSeries() {
		prices, ok := panel.Column(asset)
		if !ok {
			smetrics.StudyErrors.WithLabelValues(spread.Stage).Inc()
			return nil, &models.DataInsufficientError{Stage: spread.Stage, Series: asset}
		}
		s, err := spread.Compute(asset, ip.Index, prices, scoring.YoYLookback, realCash)
		if err != nil {
			smetrics.StudyErrors.WithLabelValues(spread.Stage).Inc()
			return nil, err
		}
		spreads = append(spreads, s)
	}
	smetrics.StudyStageLatency.WithLabelValues(spread.Stage).Observe(time.Since(stage).Seconds())

	// stage 4: inference. Spreads regress on the retained PCA components
	// plus the TIPS real yield; rolling CIs track the first component.
	stage = time.Now()
	tips, ok := panel.Column(models.SeriesTIPS10Y)
	if !ok {
		smetrics.StudyErrors.WithLabelValues(inference.Stage).Inc()
		return nil, &models.DataInsufficientError{Stage: inference.Stage, Series: models.SeriesTIPS10Y}
	}
	regNames := make([]string, 0, pca.Retained+1)
	regCols := make([][]float64, 0, pca.Retained+1)
	for k := 0; k < pca.Retained; k++ {
		regNames = append(regNames, fmt.Sprintf("pc%d", k+1))
		regCols = append(regCols, pca.Scores[k])
	}
	regNames = append(regNames, "tips_real_yield")
	regCols = append(regCols, tips[scoring.YoYLookback:])
	reg := inference.Regressors{Names: regNames, Columns: regCols}
	opts := inference.Options{
		HACLags:   r.cfg.HACLags,
		Window:    r.cfg.Window,
		Level:     r.cfg.Level,
		BreakDate: r.cfg.BreakDate,
	}
	full, err := inference.FullSample(spreads, reg, opts)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(inference.Stage).Inc()
		return nil, err
	}
	subs, err := inference.Subsample(spreads, reg, opts)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(inference.Stage).Inc()
		return nil, err
	}
	rolling := make([]*models.RollingRegression, 0, len(spreads))
	for _, s := range spreads {
		rr, err := inference.Rolling(s, reg, opts)
		if err != nil {
			smetrics.StudyErrors.WithLabelValues(inference.Stage).Inc()
			return nil, err
		}
		rolling = append(rolling, rr)
	}
	regimes, err := inference.RegimeTests(spreads, zComposite)
	if err != nil {
		smetrics.StudyErrors.WithLabelValues(inference.Stage).Inc()
		return nil, err
	}
	smetrics.StudyStageLatency.WithLabelValues(inference.Stage).Observe(time.Since(stage).Seconds())

	frame := ip.Index
	panelOut := make(map[string][]float64, len(panel.Columns()))
	for _, name := range panel.Columns() {
		col, _ := panel.Column(name)
		panelOut[name] = col[scoring.YoYLookback:]
	}
	for j, name := range ip.Names {
		panelOut[name] = ip.Columns[j]
	}

	snap := &models.StudySnapshot{
		ComputedAt:   time.Now().UTC(),
		Start:        frame[0],
		End:          frame[len(frame)-1],
		Months:       len(frame),
		Indicators:   ip.Names,
		Panel:        panelOut,
		Index:        frame,
		Spreads:      spreads,
		ZComposite:   zComposite,
		PCA:          pca,
		PCAComposite: pcaComposite,
		FullSample:   full,
		Subsamples:   subs,
		Rolling:      rolling,
		Regimes:      regimes,
	}
	r.log.Info("study snapshot computed",
		applogger.Int("months", snap.Months),
		applogger.Int("assets", len(spreads)),
		applogger.Int("pca_retained", pca.Retained),
	)
	return snap, nil
}

var _ domsvc.SnapshotProvider = (*StudyRunner)(nil)
