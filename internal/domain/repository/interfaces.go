package repository

import (
	"context"
	"time"

	"MacroPull/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Observation, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, o *models.Observation) error
	PublishBatch(ctx context.Context, obs []*models.Observation) error
	Close() error
}

type SeriesStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *models.Observation) error
	StoreBatch(ctx context.Context, obs []*models.Observation) error
	StoreMetadata(ctx context.Context, meta models.SeriesMetadata) error
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordObservationStored(backend, series string)
	RecordError(kind string)
	RecordLastValue(series string, value float64)
	RecordLatency(op string, seconds float64)
}

// ResultStore persists fitted regression results per pipeline run.
type ResultStore interface {
	StoreRegressions(ctx context.Context, computedAt time.Time, results []models.RegressionResult) error
	StoreRegimes(ctx context.Context, computedAt time.Time, tests []models.RegimeTest) error
}
