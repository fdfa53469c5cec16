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
	pkgkafka "MacroPull/pkg/kafka"
)

// Schema returns the idempotent DDL for every MacroPull table. The
// observations table uses ReplacingMergeTree keyed on (series, ts) so a
// re-pulled revision of the same data point replaces the old row.
func Schema() []string {
	return []string{
		`CREATE DATABASE IF NOT EXISTS macropull`,
		`CREATE TABLE IF NOT EXISTS macropull.observations (
            ts        DateTime,
            series    LowCardinality(String),
            value     Float64,
            source    LowCardinality(String),
            pulled_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(pulled_at)
        ORDER BY (series, ts)`,
		`CREATE TABLE IF NOT EXISTS macropull.series_metadata (
            series     LowCardinality(String),
            source     LowCardinality(String),
            identifier String,
            frequency  LowCardinality(String),
            date_start Date,
            date_end   Date,
            n_obs      UInt32,
            pulled_at  DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(pulled_at)
        ORDER BY series`,
		`CREATE TABLE IF NOT EXISTS macropull.regressions (
            computed_at DateTime,
            asset       LowCardinality(String),
            sample      LowCardinality(String),
            start       Date,
            end         Date,
            n           UInt32,
            hac_lags    UInt16,
            r2          Float64,
            name        LowCardinality(String),
            estimate    Float64,
            std_err     Float64,
            t_stat      Float64,
            p_value     Float64
        ) ENGINE = MergeTree
        ORDER BY (computed_at, asset, sample, name)`,
		`CREATE TABLE IF NOT EXISTS macropull.regime_tests (
            computed_at DateTime,
            asset       LowCardinality(String),
            threshold   Float64,
            high_n      UInt32,
            low_n       UInt32,
            high_mean   Float64,
            low_mean    Float64,
            mean_diff   Float64,
            t_stat      Float64,
            p_value     Float64
        ) ENGINE = MergeTree
        ORDER BY (computed_at, asset)`,
	}
}

// CHSeriesStore implements SeriesStore for ClickHouse.
type CHSeriesStore struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
}

// NewCHSeriesStore creates ClickHouse observation storage.
func NewCHSeriesStore(ch *pkgch.Client) repository.SeriesStore {
	return &CHSeriesStore{db: ch.DB(), ch: ch, table: "macropull.observations"}
}

func (s *CHSeriesStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, Schema())
}

func (s *CHSeriesStore) Store(ctx context.Context, o *models.Observation) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, series, value, source) VALUES (?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(o.Timestamp, 0).UTC(),
		o.Series,
		o.Value,
		o.Source,
	)
	return err
}

func (s *CHSeriesStore) StoreBatch(ctx context.Context, obs []*models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	// Multi-row VALUES inserts to keep round-trips down.
	const chunkSize = 2000
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*4)
		for _, o := range obs[start:end] {
			if o == nil || o.Series == "" || o.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args,
				time.Unix(o.Timestamp, 0).UTC(),
				o.Series,
				o.Value,
				o.Source,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, series, value, source) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *CHSeriesStore) StoreMetadata(ctx context.Context, meta models.SeriesMetadata) error {
	const q = `INSERT INTO macropull.series_metadata
        (series, source, identifier, frequency, date_start, date_end, n_obs, pulled_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		meta.Name,
		meta.Source,
		meta.Identifier,
		string(meta.Frequency),
		meta.DateStart,
		meta.DateEnd,
		uint32(meta.Count),
		meta.PulledAt,
	)
	return err
}

func (s *CHSeriesStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHSeriesStore) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, o *models.Observation) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.Series), map[string]interface{}{
		"series": o.Series,
		"t":      o.Timestamp,
		"v":      o.Value,
		"src":    o.Source,
	})
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, obs []*models.Observation) error {
	if len(obs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(obs))
	for i, o := range obs {
		msgs[i] = pkgkafka.Message{
			Key: []byte(o.Series),
			Value: map[string]interface{}{
				"series": o.Series,
				"t":      o.Timestamp,
				"v":      o.Value,
				"src":    o.Source,
			},
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
