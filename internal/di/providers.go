package di

import (
    "context"
    "fmt"
    "time"

    "MacroPull/internal/domain/models"
    "MacroPull/internal/domain/repository"
    mid "MacroPull/internal/middleware"
    internalrepo "MacroPull/internal/repository"
    icache "MacroPull/internal/service/cache"
    "MacroPull/internal/service/fred"
    "MacroPull/internal/service/marketdata"
    "MacroPull/internal/usecase"
    pkgch "MacroPull/pkg/clickhouse"
    "MacroPull/pkg/config"
    pkgkafka "MacroPull/pkg/kafka"
    applogger "MacroPull/pkg/logger"
    "MacroPull/pkg/metrics"
    "MacroPull/pkg/server"
    "MacroPull/pkg/util"

    "github.com/segmentio/kafka-go"
)

// ProvideLogger creates the shared structured logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client and runs schema init.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithConnMaxLifetime(10*time.Minute),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideSeriesStore creates ClickHouse observation storage.
func ProvideSeriesStore(chClient *pkgch.Client) repository.SeriesStore {
	return internalrepo.NewCHSeriesStore(chClient)
}

// ProvideObservationPublisher creates the Kafka publisher repository.
func ProvideObservationPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaObservationsHandler registers the handler for the observations topic.
func ProvideKafkaObservationsHandler(store repository.SeriesStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaObservationsHandler {
	return usecase.NewKafkaObservationsHandler(cfg.Kafka.Topic, store, m)
}

// knownSymbols maps exchange wire symbols to canonical series names.
var knownSymbols = map[string]string{
	"BINANCE:BTCUSDT":  models.SeriesBTC,
	"OANDA:SPX500_USD": models.SeriesSP500,
	"OANDA:XAU_USD":    models.SeriesGold,
}

func symbolSeries(symbols []string) map[string]string {
	out := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if name, ok := knownSymbols[s]; ok {
			out[s] = name
			continue
		}
		out[s] = util.NormalizeSymbol(s)
	}
	return out
}

// ProvideMarketStream creates the market data WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return marketdata.New(
		cfg.Markets.APIKey,
		cfg.Markets.WebSocketURL,
		cfg.Markets.Symbols,
		symbolSeries(cfg.Markets.Symbols),
		cfg.Markets.ReconnectDelay,
		cfg.Markets.PingInterval,
	)
}

// ProvideObservationProcessor creates the observation processor use case.
func ProvideObservationProcessor(
	pub repository.Publisher,
	store repository.SeriesStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.ObservationProcessor {
	return usecase.NewObservationProcessor(
		pub,
		store,
		m,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideObservationCollector creates the market collector use case.
func ProvideObservationCollector(
	stream repository.MarketStream,
	processor *usecase.ObservationProcessor,
	m repository.Metrics,
) *usecase.ObservationCollector {
	// Middleware pipeline between the WebSocket and the backend
	pipe := mid.NewIngestPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewObservationCollector(stream, processor, m, pipe)
}

// ProvideFredClient creates the FRED REST client.
func ProvideFredClient(cfg *config.Config, l *applogger.Logger) *fred.Client {
	return fred.New(cfg.FRED.APIKey, cfg.FRED.BaseURL, cfg.FRED.Timeout, cfg.FRED.RateLimit, l)
}

// ProvideFredSync creates the periodic FRED sync loop.
func ProvideFredSync(
	client *fred.Client,
	processor *usecase.ObservationProcessor,
	store repository.SeriesStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.FredSync {
	return usecase.NewFredSync(client, processor, store, m, l, cfg.FRED.Series, cfg.StudyStart(), cfg.FRED.SyncInterval)
}

// ProvideSnapshotCache picks Redis when configured, in-process TTL otherwise.
func ProvideSnapshotCache(cfg *config.Config) icache.BytesCache {
	if cfg.Study.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Study.Redis.Addr,
			Password: cfg.Study.Redis.Password,
			DB:       cfg.Study.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideStudyRunner wires the monthly study pipeline.
func ProvideStudyRunner(
	chClient *pkgch.Client,
	cache icache.BytesCache,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.StudyRunner {
	reader := internalrepo.NewCHSeriesReader(chClient)
	reader.SetLogger(l)
	results := internalrepo.NewCHResultStore(chClient)
	return usecase.NewStudyRunner(reader, results, cache, l, usecase.StudyConfig{
		Start:             cfg.StudyStart(),
		BreakDate:         cfg.BreakDate(),
		MinMonths:         cfg.Study.MinMonths,
		HACLags:           cfg.Study.HACLags,
		Window:            cfg.Study.RollingWindow,
		Level:             cfg.Study.ConfidenceLevel,
		VarianceThreshold: cfg.Study.VarianceThreshold,
		Indicators:        cfg.Study.Indicators,
		CacheTTL:          cfg.Study.CacheTTL,
	})
}

// consumeLatencyHook stamps handling start and records the elapsed time.
func consumeLatencyHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return pkgkafka.WithStartTime(ctx, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			if t, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("kafka_handle", time.Since(t).Seconds())
			}
		},
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.ObservationCollector,
	fredSync *usecase.FredSync,
	runner *usecase.StudyRunner,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaObservationsHandler,
	chClient *pkgch.Client,
	m repository.Metrics,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(consumeLatencyHook(m))
	}
	app := server.New(cfg, collector, fredSync, runner, consumer, kh, chClient)
	if collector != nil {
		app.ObsProc = collector.Processor()
	}
	return app
}
