package models

import "time"

// Frequency is the native sampling frequency of a raw series.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
)

// Canonical series names used across storage, ingestion, and the study.
const (
	SeriesM2       = "m2"
	SeriesCPI      = "cpi"
	SeriesGDP      = "gdp"
	SeriesFedFunds = "fed_funds"
	SeriesTIPS10Y  = "tips_10y"
	SeriesBTC      = "btc_usd"
	SeriesSP500    = "sp500"
	SeriesGold     = "gold"
)

// StudySeries lists every series the study consumes, in storage order.
func StudySeries() []string {
	return []string{
		SeriesM2, SeriesCPI, SeriesGDP, SeriesFedFunds,
		SeriesTIPS10Y, SeriesBTC, SeriesSP500, SeriesGold,
	}
}

// AssetSeries lists the price series whose spreads the study measures.
func AssetSeries() []string {
	return []string{SeriesBTC, SeriesSP500, SeriesGold}
}

// NativeFrequency returns the sampling frequency each canonical series is
// published at. Alignment picks its resampler from this.
func NativeFrequency(name string) Frequency {
	switch name {
	case SeriesM2, SeriesCPI, SeriesFedFunds:
		return FreqMonthly
	case SeriesGDP:
		return FreqQuarterly
	default:
		return FreqDaily
	}
}

// Observation is a single raw data point for a named series.
type Observation struct {
	Series    string
	Timestamp int64 // unix seconds
	Value     float64
	Source    string // "fred", "market"
}

// Point is one (timestamp, value) pair inside a RawSeries.
type Point struct {
	Time  time.Time
	Value float64
}

// RawSeries is an ordered series at its native frequency, before alignment.
type RawSeries struct {
	Name      string
	Frequency Frequency
	Points    []Point
}

// Len returns the number of points.
func (s RawSeries) Len() int { return len(s.Points) }

// Empty reports whether the series has no points.
func (s RawSeries) Empty() bool { return len(s.Points) == 0 }

// TimeSeries is an aligned monthly series sharing the panel index.
type TimeSeries struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// AlignedPanel holds every aligned series on one identical month-end index.
// Created by the alignment stage and immutable afterwards.
type AlignedPanel struct {
	Index   []time.Time
	columns map[string][]float64
	order   []string
}

// NewAlignedPanel builds a panel over the given index.
func NewAlignedPanel(index []time.Time) *AlignedPanel {
	return &AlignedPanel{
		Index:   index,
		columns: make(map[string][]float64),
	}
}

// AddColumn attaches a column; values must match the index length.
func (p *AlignedPanel) AddColumn(name string, values []float64) {
	if _, ok := p.columns[name]; !ok {
		p.order = append(p.order, name)
	}
	p.columns[name] = values
}

// Column returns the values for a named series.
func (p *AlignedPanel) Column(name string) ([]float64, bool) {
	v, ok := p.columns[name]
	return v, ok
}

// Columns returns the column names in insertion order.
func (p *AlignedPanel) Columns() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Len returns the number of rows in the panel.
func (p *AlignedPanel) Len() int { return len(p.Index) }

// Series extracts one column as a TimeSeries sharing the panel index.
func (p *AlignedPanel) Series(name string) (TimeSeries, bool) {
	v, ok := p.columns[name]
	if !ok {
		return TimeSeries{}, false
	}
	return TimeSeries{Name: name, Index: p.Index, Values: v}, true
}

// SeriesMetadata records provenance for one pulled series.
type SeriesMetadata struct {
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	Identifier string    `json:"identifier"` // FRED series ID or market symbol
	Frequency  Frequency `json:"frequency"`
	DateStart  time.Time `json:"date_start"`
	DateEnd    time.Time `json:"date_end"`
	Count      int       `json:"n_obs"`
	PulledAt   time.Time `json:"pulled_at"`
}
