package repository

import (
	"context"
	"time"

	"MacroPull/internal/domain/models"
)

// SeriesReader provides read-only access to raw series for the study.
type SeriesReader interface {
	GetSeries(ctx context.Context, name string, from, to time.Time) (models.RawSeries, error)
	GetAllSeries(ctx context.Context, names []string, from, to time.Time) (map[string]models.RawSeries, error)
}
