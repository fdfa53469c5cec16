package usecase

import (
	"context"
	"fmt"
	"time"

	"MacroPull/internal/domain/models"
	domrepo "MacroPull/internal/domain/repository"
	pkgcache "MacroPull/pkg/cache"
)

// SeriesQueryUseCase provides business logic for retrieving raw series.
type SeriesQueryUseCase struct {
	reader   domrepo.SeriesReader
	cache    pkgcache.Service
	cacheTTL time.Duration
}

func NewSeriesQueryUseCase(reader domrepo.SeriesReader) *SeriesQueryUseCase {
	return &SeriesQueryUseCase{reader: reader}
}

// WithCache enables result caching for repeated queries.
func (uc *SeriesQueryUseCase) WithCache(c pkgcache.Service, ttl time.Duration) *SeriesQueryUseCase {
	uc.cache = c
	uc.cacheTTL = ttl
	return uc
}

type GetSeriesParams struct {
	Name  string
	From  time.Time
	To    time.Time
	Limit int
}

type GetSeriesResult struct {
	Name      string
	Frequency string
	From      time.Time
	To        time.Time
	Count     int
	Points    []models.Point
}

func (uc *SeriesQueryUseCase) GetSeries(ctx context.Context, p GetSeriesParams) (*GetSeriesResult, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("series name required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	key := pkgcache.GenerateKeyWithParams("series", p.Name, p.From.Unix(), p.To.Unix(), p.Limit)
	if uc.cache != nil {
		var cached interface{}
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			if res, ok := cached.(*GetSeriesResult); ok {
				return res, nil
			}
		}
	}

	rs, err := uc.reader.GetSeries(ctx, p.Name, p.From, p.To)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	points := rs.Points
	if len(points) > p.Limit {
		points = points[:p.Limit]
	}

	res := &GetSeriesResult{
		Name:      rs.Name,
		Frequency: string(rs.Frequency),
		From:      p.From,
		To:        p.To,
		Count:     len(points),
		Points:    points,
	}

	if uc.cache != nil {
		_ = uc.cache.Set(ctx, key, res, uc.cacheTTL)
	}

	return res, nil
}
