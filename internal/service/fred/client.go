package fred

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/service/ratelimit"
	xhttp "MacroPull/pkg/http"
	applogger "MacroPull/pkg/logger"
)

const DefaultBaseURL = "https://api.stlouisfed.org/fred"

// fredIDs maps canonical series names to FRED series identifiers.
var fredIDs = map[string]string{
	models.SeriesM2:       "M2SL",
	models.SeriesCPI:      "CPIAUCSL",
	models.SeriesGDP:      "GDP",
	models.SeriesFedFunds: "FEDFUNDS",
	models.SeriesTIPS10Y:  "DFII10",
	models.SeriesSP500:    "SP500",
	models.SeriesGold:     "GOLDAMGBD228NLBM",
}

// SeriesID returns the FRED identifier for a canonical series name.
func SeriesID(name string) (string, bool) {
	id, ok := fredIDs[name]
	return id, ok
}

// Client fetches observations from the FRED REST API.
type Client struct {
	apiKey     string
	baseURL    string
	http       *xhttp.Client
	limiter    *ratelimit.Limiter
	ratePerMin int
	logger     *applogger.Logger
}

// New creates a FRED API client.
func New(apiKey, baseURL string, timeout time.Duration, ratePerMin int, logger *applogger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ratePerMin <= 0 {
		ratePerMin = 120 // documented FRED limit
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		http:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter:    ratelimit.New(),
		ratePerMin: ratePerMin,
		logger:     logger,
	}
}

type apiObservation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type observationsResponse struct {
	Observations []apiObservation `json:"observations"`
}

type seriesResponse struct {
	Seriess []struct {
		ID               string `json:"id"`
		Title            string `json:"title"`
		Frequency        string `json:"frequency"`
		ObservationStart string `json:"observation_start"`
		ObservationEnd   string `json:"observation_end"`
	} `json:"seriess"`
}

func (c *Client) wait(ctx context.Context) error {
	for !c.limiter.Allow("fred", float64(c.ratePerMin), float64(c.ratePerMin)/60.0) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	return nil
}

// FetchSeries pulls all observations for one canonical series since start.
// FRED marks missing values with "."; those rows are skipped.
func (c *Client) FetchSeries(ctx context.Context, name string, start time.Time) (models.RawSeries, error) {
	id, ok := SeriesID(name)
	if !ok {
		return models.RawSeries{}, fmt.Errorf("fred: unknown series %q", name)
	}
	if err := c.wait(ctx); err != nil {
		return models.RawSeries{}, err
	}

	var resp observationsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/series/observations",
		QueryParams: map[string][]string{
			"series_id":         {id},
			"api_key":           {c.apiKey},
			"file_type":         {"json"},
			"observation_start": {start.Format("2006-01-02")},
		},
	}, &resp)
	if err != nil {
		return models.RawSeries{}, fmt.Errorf("fred fetch %s: %w", id, err)
	}

	out := models.RawSeries{Name: name, Frequency: models.NativeFrequency(name)}
	skipped := 0
	for _, o := range resp.Observations {
		if o.Value == "." {
			skipped++
			continue
		}
		t, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return models.RawSeries{}, fmt.Errorf("fred %s: bad date %q: %w", id, o.Date, err)
		}
		v, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			return models.RawSeries{}, fmt.Errorf("fred %s: bad value %q at %s: %w", id, o.Value, o.Date, err)
		}
		out.Points = append(out.Points, models.Point{Time: t.UTC(), Value: v})
	}
	c.logger.Debug("fred series fetched",
		applogger.String("series", name),
		applogger.Int("points", len(out.Points)),
		applogger.Int("skipped", skipped))
	return out, nil
}

// FetchMetadata pulls descriptive metadata for one canonical series.
func (c *Client) FetchMetadata(ctx context.Context, name string) (models.SeriesMetadata, error) {
	id, ok := SeriesID(name)
	if !ok {
		return models.SeriesMetadata{}, fmt.Errorf("fred: unknown series %q", name)
	}
	if err := c.wait(ctx); err != nil {
		return models.SeriesMetadata{}, err
	}

	var resp seriesResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/series",
		QueryParams: map[string][]string{
			"series_id": {id},
			"api_key":   {c.apiKey},
			"file_type": {"json"},
		},
	}, &resp)
	if err != nil {
		return models.SeriesMetadata{}, fmt.Errorf("fred metadata %s: %w", id, err)
	}
	if len(resp.Seriess) == 0 {
		return models.SeriesMetadata{}, fmt.Errorf("fred metadata %s: empty response", id)
	}
	s := resp.Seriess[0]
	start, _ := time.Parse("2006-01-02", s.ObservationStart)
	end, _ := time.Parse("2006-01-02", s.ObservationEnd)

	// Prefer the frequency FRED reports; "Daily, Close" style strings
	// normalize to daily.
	freq := drepo.NormalizeFrequency(strings.ToLower(s.Frequency))

	return models.SeriesMetadata{
		Name:       name,
		Source:     "fred",
		Identifier: s.ID,
		Frequency:  freq,
		DateStart:  start,
		DateEnd:    end,
		PulledAt:   time.Now().UTC(),
	}, nil
}
