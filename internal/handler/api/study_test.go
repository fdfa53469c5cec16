package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	icache "MacroPull/internal/service/cache"
)

type stubProvider struct {
	snap      *models.StudySnapshot
	err       error
	snaps     int
	refreshes int
}

func (s *stubProvider) Snapshot(ctx context.Context) (*models.StudySnapshot, error) {
	s.snaps++
	return s.snap, s.err
}

func (s *stubProvider) Refresh(ctx context.Context) (*models.StudySnapshot, error) {
	s.refreshes++
	return s.snap, s.err
}

func testSnapshot() *models.StudySnapshot {
	idx := []time.Time{
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}
	return &models.StudySnapshot{
		ComputedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Months:     len(idx),
		Index:      idx,
		Indicators: []string{"m2_yoy_pct"},
		Panel:      map[string][]float64{"m2_yoy_pct": {3.1, 3.4}},
		Spreads: []*models.SpreadSeries{
			{Asset: models.SeriesBTC, Index: idx, Spreads: []float64{0.05, -0.02}},
			{Asset: models.SeriesGold, Index: idx, Spreads: []float64{0.01, 0.02}},
		},
		ZComposite:   &models.CompositeScore{Method: "z_average", Index: idx, Values: []float64{0.2, -0.1}},
		PCAComposite: &models.CompositeScore{Method: "pca", Index: idx, Values: []float64{0.3, -0.2}},
		PCA:          &models.PCAResult{Indicators: []string{"m2_yoy_pct"}, Retained: 1},
		FullSample: []models.RegressionResult{
			{Asset: models.SeriesBTC, Sample: models.SampleFull, N: 2},
		},
		Subsamples: []models.RegressionResult{
			{Asset: models.SeriesBTC, Sample: models.SamplePreBreak, N: 1},
			{Asset: models.SeriesBTC, Sample: models.SamplePostBreak, N: 1},
		},
		Regimes: []models.RegimeTest{{Asset: models.SeriesBTC, HighN: 1, LowN: 1}},
	}
}

func TestPanelServesSnapshot(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodGet, "/api/panel", nil)
	rec := httptest.NewRecorder()
	h.Panel().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := body["months"].(float64); got != 2 {
		t.Fatalf("months = %v, want 2", got)
	}
	if prov.snaps != 1 {
		t.Fatalf("provider called %d times, want 1", prov.snaps)
	}
}

func TestSpreadsFilterByAsset(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodGet, "/api/spreads?asset="+models.SeriesGold, nil)
	rec := httptest.NewRecorder()
	h.Spreads().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var s models.SpreadSeries
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.Asset != models.SeriesGold {
		t.Fatalf("asset = %q, want %q", s.Asset, models.SeriesGold)
	}
}

func TestSpreadsUnknownAsset(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodGet, "/api/spreads?asset=nope", nil)
	rec := httptest.NewRecorder()
	h.Spreads().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCompositeMethodSelection(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodGet, "/api/composite?method=pca", nil)
	rec := httptest.NewRecorder()
	h.Composite().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := body["pca"]; !ok {
		t.Fatalf("pca payload missing for method=pca")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/composite", nil)
	rec = httptest.NewRecorder()
	h.Composite().ServeHTTP(rec, req)

	body = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var cs models.CompositeScore
	if err := json.Unmarshal(body["composite"], &cs); err != nil {
		t.Fatalf("unmarshal composite: %v", err)
	}
	if cs.Method != "z_average" {
		t.Fatalf("method = %q, want z_average", cs.Method)
	}
}

func TestRegressionsSampleFilter(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodGet, "/api/regressions?sample="+models.SamplePreBreak, nil)
	rec := httptest.NewRecorder()
	h.Regressions().ServeHTTP(rec, req)

	var got []models.RegressionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d subsample rows, want 2", len(got))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/regressions", nil)
	rec = httptest.NewRecorder()
	h.Regressions().ServeHTTP(rec, req)

	got = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Sample != models.SampleFull {
		t.Fatalf("default sample = %+v, want single full-sample row", got)
	}
}

func TestRefreshTriggersRecompute(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	h.Refresh().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if prov.refreshes != 1 {
		t.Fatalf("refreshes = %d, want 1", prov.refreshes)
	}
}

func TestSnapshotErrorMapsToStatus(t *testing.T) {
	prov := &stubProvider{err: &models.DataInsufficientError{Stage: "align", Months: 3, Min: 24}}
	h := NewStudyHandler(prov)

	req := httptest.NewRequest(http.MethodGet, "/api/regimes", nil)
	rec := httptest.NewRecorder()
	h.Regimes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCachedResponseSkipsProvider(t *testing.T) {
	prov := &stubProvider{snap: testSnapshot()}
	h := NewStudyHandler(prov)
	h.SetCache(icache.NewTTLCache())

	req := httptest.NewRequest(http.MethodGet, "/api/regimes", nil)
	rec := httptest.NewRecorder()
	h.Regimes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Regimes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second status = %d, want 200", rec.Code)
	}
	if prov.snaps != 1 {
		t.Fatalf("provider called %d times, want 1 (second hit cached)", prov.snaps)
	}
}
