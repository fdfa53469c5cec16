package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/domain/repository"
	pkgch "MacroPull/pkg/clickhouse"
)

// CHResultStore persists fitted study results, one row per coefficient.
type CHResultStore struct {
	db *sql.DB
}

func NewCHResultStore(ch *pkgch.Client) repository.ResultStore {
	return &CHResultStore{db: ch.DB()}
}

func (s *CHResultStore) StoreRegressions(ctx context.Context, computedAt time.Time, results []models.RegressionResult) error {
	if len(results) == 0 {
		return nil
	}
	values := make([]string, 0, len(results)*4)
	args := make([]interface{}, 0, len(results)*4*13)
	for _, r := range results {
		for _, c := range r.Coefficients {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				computedAt,
				r.Asset,
				r.Sample,
				r.Start,
				r.End,
				uint32(r.N),
				uint16(r.HACLags),
				r.R2,
				c.Name,
				c.Estimate,
				c.StdErr,
				c.TStat,
				c.PValue,
			)
		}
	}
	q := fmt.Sprintf(`INSERT INTO macropull.regressions
        (computed_at, asset, sample, start, end, n, hac_lags, r2, name, estimate, std_err, t_stat, p_value)
        VALUES %s`, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store regressions: %w", err)
	}
	return nil
}

func (s *CHResultStore) StoreRegimes(ctx context.Context, computedAt time.Time, tests []models.RegimeTest) error {
	if len(tests) == 0 {
		return nil
	}
	values := make([]string, 0, len(tests))
	args := make([]interface{}, 0, len(tests)*10)
	for _, t := range tests {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			computedAt,
			t.Asset,
			t.Threshold,
			uint32(t.HighN),
			uint32(t.LowN),
			t.HighMean,
			t.LowMean,
			t.MeanDiff,
			t.TStat,
			t.PValue,
		)
	}
	q := fmt.Sprintf(`INSERT INTO macropull.regime_tests
        (computed_at, asset, threshold, high_n, low_n, high_mean, low_mean, mean_diff, t_stat, p_value)
        VALUES %s`, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("store regime tests: %w", err)
	}
	return nil
}
