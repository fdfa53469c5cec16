package usecase

import (
	"context"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/service/fred"
	applogger "MacroPull/pkg/logger"
)

// FredSync periodically pulls configured FRED series and routes the
// observations through the processor. Metadata is written alongside so
// every pull is attributable.
type FredSync struct {
	client   *fred.Client
	proc     *ObservationProcessor
	store    drepo.SeriesStore
	metrics  drepo.Metrics
	log      *applogger.Logger
	series   []string
	start    time.Time
	interval time.Duration
}

// NewFredSync creates the sync loop. interval <= 0 disables periodic
// re-pulls; SyncOnce can still be called directly.
func NewFredSync(client *fred.Client, proc *ObservationProcessor, store drepo.SeriesStore, metrics drepo.Metrics, log *applogger.Logger, series []string, start time.Time, interval time.Duration) *FredSync {
	return &FredSync{
		client:   client,
		proc:     proc,
		store:    store,
		metrics:  metrics,
		log:      log,
		series:   series,
		start:    start,
		interval: interval,
	}
}

// Start runs an immediate sync then re-pulls on the configured interval.
func (s *FredSync) Start(ctx context.Context) {
	go func() {
		if err := s.SyncOnce(ctx); err != nil {
			s.log.Error("initial fred sync failed", applogger.Error(err))
		}
		if s.interval <= 0 {
			return
		}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SyncOnce(ctx); err != nil {
					s.log.Error("fred sync failed", applogger.Error(err))
				}
			}
		}
	}()
}

// SyncOnce pulls every configured series once.
func (s *FredSync) SyncOnce(ctx context.Context) error {
	start := time.Now()
	for _, name := range s.series {
		if err := s.syncSeries(ctx, name); err != nil {
			s.metrics.RecordError("fred_sync")
			return err
		}
	}
	s.metrics.RecordLatency("fred_sync", time.Since(start).Seconds())
	return nil
}

func (s *FredSync) syncSeries(ctx context.Context, name string) error {
	rs, err := s.client.FetchSeries(ctx, name, s.start)
	if err != nil {
		return err
	}
	obs := make([]*models.Observation, 0, rs.Len())
	for _, p := range rs.Points {
		obs = append(obs, &models.Observation{
			Series:    name,
			Timestamp: p.Time.Unix(),
			Value:     p.Value,
			Source:    "fred",
		})
	}
	if err := s.proc.ProcessBatch(ctx, obs); err != nil {
		return err
	}

	meta, err := s.client.FetchMetadata(ctx, name)
	if err != nil {
		// observations landed; metadata is best effort
		s.log.Warn("fred metadata fetch failed",
			applogger.String("series", name), applogger.Error(err))
		return nil
	}
	meta.Count = rs.Len()
	if err := s.store.StoreMetadata(ctx, meta); err != nil {
		s.log.Warn("store metadata failed",
			applogger.String("series", name), applogger.Error(err))
	}
	s.log.Info("fred series synced",
		applogger.String("series", name),
		applogger.Int("points", rs.Len()))
	return nil
}
