package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	pkgch "MacroPull/pkg/clickhouse"
	applogger "MacroPull/pkg/logger"
)

// CHSeriesReader implements SeriesReader backed by ClickHouse. It reads
// the deduplicated view of raw observations so re-pulled values never
// appear twice.
type CHSeriesReader struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHSeriesReader(ch *pkgch.Client) *CHSeriesReader {
	return &CHSeriesReader{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHSeriesReader) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSeriesReader) GetSeries(ctx context.Context, name string, from, to time.Time) (models.RawSeries, error) {
	start := time.Now()
	const q = `
        SELECT ts, value
        FROM macropull.observations FINAL
        WHERE series = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `
	rows, err := s.db.QueryContext(ctx, q, name, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_series query error",
				applogger.String("series", name),
				applogger.Error(err),
			)
		}
		return models.RawSeries{}, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	out := models.RawSeries{Name: name, Frequency: models.NativeFrequency(name)}
	for rows.Next() {
		var ts time.Time
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse get_series scan error",
					applogger.String("series", name),
					applogger.Error(err),
				)
			}
			return models.RawSeries{}, fmt.Errorf("scan observation: %w", err)
		}
		out.Points = append(out.Points, models.Point{Time: ts.UTC(), Value: v})
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse get_series rows error",
				applogger.String("series", name),
				applogger.Error(err),
			)
		}
		return models.RawSeries{}, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_series ok",
			applogger.String("series", name),
			applogger.Int("rows", len(out.Points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHSeriesReader) GetAllSeries(ctx context.Context, names []string, from, to time.Time) (map[string]models.RawSeries, error) {
	out := make(map[string]models.RawSeries, len(names))
	for _, name := range names {
		rs, err := s.GetSeries(ctx, name, from, to)
		if err != nil {
			return nil, err
		}
		if rs.Empty() {
			continue
		}
		out[name] = rs
	}
	return out, nil
}
