package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"MacroPull/internal/handler/api"
	"MacroPull/internal/repository"
	icache "MacroPull/internal/service/cache"
	"MacroPull/internal/usecase"
	pkgcache "MacroPull/pkg/cache"
	pkgch "MacroPull/pkg/clickhouse"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	httpmw "MacroPull/pkg/http/middleware"
	pkgkafka "MacroPull/pkg/kafka"
	applogger "MacroPull/pkg/logger"
	"MacroPull/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.ObservationCollector
	fredSync    *usecase.FredSync
	runner      *usecase.StudyRunner
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	opsServer   *nethttp.Server
	recompute   *queue.RedisQueue
	logPub      *queue.RedisQueue
	ObsProc     *usecase.ObservationProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.ObservationCollector,
	fredSync *usecase.FredSync,
	runner *usecase.StudyRunner,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		fredSync:  fredSync,
		runner:    runner,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	// Setup Echo HTTP server using pkg/http and register routes via handler
	var httpHandler xhttp.Handler
	if a.httpHandler != nil {
		httpHandler = a.httpHandler
	} else if a.runner != nil && a.chClient != nil {
		reader := repository.NewCHSeriesReader(a.chClient)
		reader.SetLogger(l)

		sq := usecase.NewSeriesQueryUseCase(reader).
			WithCache(a.seriesCache(l), time.Minute)

		se := api.NewStudyEchoHandler(l, a.runner, sq)
		httpHandler = se
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
	)

	// Start market collector
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			l.Error("collector error", applogger.Error(err))
		}
	}()
	l.Info("collector started", applogger.Strings("symbols", a.cfg.Markets.Symbols))

	// Start FRED sync loop
	if a.fredSync != nil {
		a.fredSync.Start(ctx)
		l.Info("fred sync started", applogger.Strings("series", a.cfg.FRED.Series))
	}

	// Periodic study recompute: through the Redis queue when enabled so
	// API refreshes and the ticker share one worker, inline otherwise.
	if a.runner != nil && a.cfg.Study.RecomputeInterval > 0 {
		if a.cfg.Study.Redis.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     a.cfg.Study.Redis.Addr,
				Password: a.cfg.Study.Redis.Password,
				DB:       a.cfg.Study.Redis.DB,
			})
			// Queue internals log through a collector-free logger so a
			// publish failure cannot feed back into the collector.
			ql, _ := applogger.New(&applogger.Config{Level: "warn", Format: "console", Output: "stdout"})

			job := usecase.NewStudyRecomputeJob(a.runner, l)
			a.recompute = queue.NewRedisQueue(ql, &queue.QueueConfig{
				Workers:    1,
				RetryLimit: 2,
				RetryDelay: 30 * time.Second,
			}, rdb, queue.ModeProducerConsumer, queue.WithKeyPrefix("macropull:study"))
			a.recompute.RegisterJob(job)
			if err := a.recompute.Start(); err != nil {
				l.Error("recompute queue start error", applogger.Error(err))
			} else {
				// Aggregate repeated error logs onto a publisher-only queue
				a.logPub = queue.NewRedisPublisher(ql, rdb, queue.WithKeyPrefix("macropull:logs"))
				l.AddCollector(&applogger.CollectionConfig{
					TimeInterval:   30 * time.Second,
					CountThreshold: 100,
					Topic:          "logs.errors",
					Publisher:      a.logPub,
				})
				go a.recomputeTicker(ctx, func() {
					payload := usecase.RecomputePayload{Reason: "scheduled", RequestedAt: time.Now()}
					if err := a.recompute.Enqueue(ctx, job.Type(), payload); err != nil {
						l.Warn("recompute enqueue error", applogger.Error(err))
					}
				})
			}
		} else {
			go a.recomputeTicker(ctx, func() {
				if _, err := a.runner.Refresh(ctx); err != nil {
					l.Warn("study refresh error", applogger.Error(err))
				}
			})
		}
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Optional ops listener: the plain net/http surface behind the
	// Prometheus request middleware, on its own port.
	if a.cfg.Server.OpsPort > 0 && a.runner != nil {
		sh := api.NewStudyHandler(a.runner)
		sh.SetLogger(l)
		sh.SetCache(icache.NewTTLCache())
		a.opsServer = &nethttp.Server{
			Addr:         fmt.Sprintf(":%d", a.cfg.Server.OpsPort),
			Handler:      httpmw.Metrics(l, 500*time.Millisecond)(sh.Mux()),
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
		}
		go func() {
			l.Info("ops server listening", applogger.Int("port", a.cfg.Server.OpsPort))
			if err := a.opsServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				l.Error("ops server error", applogger.Error(err))
			}
		}()
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// best-effort logging via stdout
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if err := a.collector.Shutdown(ctx); err != nil {
		l.Warn("collector stop error", applogger.Error(err))
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}
	if a.opsServer != nil {
		if err := a.opsServer.Shutdown(shutdownCtx); err != nil {
			l.Warn("ops server shutdown error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop recompute queue and log publisher
	if a.recompute != nil {
		if err := a.recompute.Stop(ctx); err != nil {
			l.Warn("recompute queue stop error", applogger.Error(err))
		}
	}
	if a.logPub != nil {
		if err := a.logPub.Stop(ctx); err != nil {
			l.Warn("log publisher stop error", applogger.Error(err))
		}
	}

	// Close observation processor resources (publisher/storage)
	if a.ObsProc != nil {
		a.ObsProc.Close()
	}

	l.Info("shutdown complete")
	return nil
}

// seriesCache builds the cache backing raw series queries. With Redis
// enabled it layers a small in-process cache over Redis so repeated chart
// fetches skip the network; otherwise it is memory only.
func (a *App) seriesCache(l *applogger.Logger) pkgcache.Service {
	r := a.cfg.Study.Redis
	if r.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(r.Addr),
			pkgcache.WithRedisPassword(r.Password),
			pkgcache.WithRedisDB(r.DB),
			pkgcache.WithRedisPrefix("macropull:series"),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(256))
		}
		l.Warn("series cache falling back to memory", applogger.Error(err))
	}
	return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(256))
}

// recomputeTicker runs fn on the configured recompute interval until
// the context is cancelled.
func (a *App) recomputeTicker(ctx context.Context, fn func()) {
	t := time.NewTicker(a.cfg.Study.RecomputeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// Health and readiness endpoints should be registered via Echo when needed.
