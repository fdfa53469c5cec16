package align

import (
	"errors"
	"math"
	"testing"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/pkg/util"
)

func dailySeries(name string, start time.Time, days int, f func(i int) float64) models.RawSeries {
	rs := models.RawSeries{Name: name, Frequency: models.FreqDaily}
	for i := 0; i < days; i++ {
		rs.Points = append(rs.Points, models.Point{Time: start.AddDate(0, 0, i), Value: f(i)})
	}
	return rs
}

func monthlySeries(name string, start time.Time, months int, f func(i int) float64) models.RawSeries {
	rs := models.RawSeries{Name: name, Frequency: models.FreqMonthly}
	for i := 0; i < months; i++ {
		rs.Points = append(rs.Points, models.Point{Time: start.AddDate(0, i, 0), Value: f(i)})
	}
	return rs
}

func quarterlySeries(name string, start time.Time, quarters int, f func(i int) float64) models.RawSeries {
	rs := models.RawSeries{Name: name, Frequency: models.FreqQuarterly}
	for i := 0; i < quarters; i++ {
		rs.Points = append(rs.Points, models.Point{Time: start.AddDate(0, 3*i, 0), Value: f(i)})
	}
	return rs
}

func TestBuildPanelSharedMonotonicIndex(t *testing.T) {
	start := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{
		Series: map[string]models.RawSeries{
			"daily":     dailySeries("daily", start, 3*365, func(i int) float64 { return 100 + float64(i) }),
			"monthly":   monthlySeries("monthly", start, 36, func(i int) float64 { return float64(i) }),
			"quarterly": quarterlySeries("quarterly", start, 12, func(i int) float64 { return 1000 + float64(i) }),
		},
		Required:  []string{"daily", "monthly", "quarterly"},
		MinMonths: 24,
	}
	p, err := BuildPanel(in)
	if err != nil {
		t.Fatalf("BuildPanel: %v", err)
	}
	if p.Len() < 24 {
		t.Fatalf("panel too short: %d", p.Len())
	}
	for i := 1; i < p.Len(); i++ {
		if !p.Index[i].After(p.Index[i-1]) {
			t.Fatalf("index not strictly increasing at %d", i)
		}
		if util.MonthKey(p.Index[i]) != util.MonthKey(p.Index[i-1])+1 {
			t.Fatalf("gap in index at %d: %v -> %v", i, p.Index[i-1], p.Index[i])
		}
	}
	for _, name := range p.Columns() {
		col, ok := p.Column(name)
		if !ok || len(col) != p.Len() {
			t.Fatalf("column %s does not share the panel index", name)
		}
	}
}

func TestBuildPanelDailyTakesMonthLast(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{
		Series: map[string]models.RawSeries{
			"px": dailySeries("px", start, 3*365, func(i int) float64 { return float64(i) }),
		},
		Required:  []string{"px"},
		MinMonths: 12,
	}
	p, err := BuildPanel(in)
	if err != nil {
		t.Fatalf("BuildPanel: %v", err)
	}
	col, _ := p.Column("px")
	// January 2020 has 31 days, so the month-last observation is day index 30.
	if col[0] != 30 {
		t.Fatalf("expected last-of-month value 30, got %v", col[0])
	}
}

func TestBuildPanelSplinePreservesAnchors(t *testing.T) {
	start := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	anchor := func(i int) float64 { return 17000 + 250*float64(i) }
	in := Input{
		Series: map[string]models.RawSeries{
			"gdp": quarterlySeries("gdp", start, 16, anchor),
		},
		Required:  []string{"gdp"},
		MinMonths: 24,
	}
	p, err := BuildPanel(in)
	if err != nil {
		t.Fatalf("BuildPanel: %v", err)
	}
	col, _ := p.Column("gdp")
	for i, ts := range p.Index {
		if (util.MonthKey(ts)-util.MonthKey(start))%3 != 0 {
			continue // not an anchor month
		}
		q := (util.MonthKey(ts) - util.MonthKey(start)) / 3
		if math.Abs(col[i]-anchor(q)) > 1e-6 {
			t.Fatalf("anchor month %v: got %v want %v", ts, col[i], anchor(q))
		}
	}
}

func TestBuildPanelMissingSeries(t *testing.T) {
	in := Input{
		Series:   map[string]models.RawSeries{},
		Required: []string{"m2"},
	}
	_, err := BuildPanel(in)
	var die *models.DataInsufficientError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataInsufficientError, got %v", err)
	}
	if die.Series != "m2" {
		t.Fatalf("expected failing series name, got %q", die.Series)
	}
}

func TestBuildPanelShortWindow(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{
		Series: map[string]models.RawSeries{
			"m2": monthlySeries("m2", start, 10, func(i int) float64 { return float64(i) }),
		},
		Required:  []string{"m2"},
		MinMonths: 24,
	}
	_, err := BuildPanel(in)
	var die *models.DataInsufficientError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataInsufficientError, got %v", err)
	}
	if die.Months != 10 || die.Min != 24 {
		t.Fatalf("unexpected window report: %+v", die)
	}
}

func TestBuildPanelClipsToStudyStart(t *testing.T) {
	start := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)
	in := Input{
		Series: map[string]models.RawSeries{
			"m2": monthlySeries("m2", start, 60, func(i int) float64 { return float64(i) }),
		},
		Required:   []string{"m2"},
		StudyStart: time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC),
		MinMonths:  24,
	}
	p, err := BuildPanel(in)
	if err != nil {
		t.Fatalf("BuildPanel: %v", err)
	}
	if p.Index[0].Before(time.Date(2014, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("panel not clipped: starts %v", p.Index[0])
	}
}
