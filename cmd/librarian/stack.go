package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/eventstore"
	"github.com/AntonStoeckl/library-circulation-go/eventstore/memoryengine"
	"github.com/AntonStoeckl/library-circulation-go/eventstore/postgresengine"
	"github.com/AntonStoeckl/library-circulation-go/library"
	"github.com/AntonStoeckl/library-circulation-go/library/shell"
	"github.com/AntonStoeckl/library-circulation-go/logging"
	"github.com/AntonStoeckl/library-circulation-go/notification/redisnotify"
	"github.com/AntonStoeckl/library-circulation-go/observability/otelcollector"
	"github.com/AntonStoeckl/library-circulation-go/observability/promcollector"
	"github.com/AntonStoeckl/library-circulation-go/persistence/eventsourced"
	"github.com/AntonStoeckl/library-circulation-go/reviews/cachedreviews"
	"github.com/AntonStoeckl/library-circulation-go/reviews/httpreviews"
)

const (
	persistenceOperation     = "persistence"
	metricsShutdownTimeout   = 2 * time.Second
	metricsReadHeaderTimeout = 5 * time.Second
)

// stack is everything a command needs, wired from the configuration.
type stack struct {
	library   *library.Library
	publisher *redisnotify.Publisher
	migrate   func(ctx context.Context) error
	closers   []func()
	// ephemeral is set for the memory engine, whose state ends with the process.
	ephemeral bool
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

type stackFactory func(ctx context.Context, cfg *config.Config, logger *logging.Adapter) (*stack, error)

// buildStack wires storage, notification, reviews and metrics into a Library.
func buildStack(ctx context.Context, cfg *config.Config, logger *logging.Adapter) (*stack, error) {
	s := &stack{}

	metrics, err := s.openMetrics(cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}

	es, err := s.openEventStore(ctx, cfg, logger, metrics)
	if err != nil {
		s.Close()
		return nil, err
	}

	redisClient := config.NewRedisClient(cfg.Redis)
	s.closers = append(s.closers, func() { _ = redisClient.Close() })

	publisher, err := redisnotify.NewPublisher(
		redisClient,
		redisnotify.WithKeyPrefix(cfg.Redis.KeyPrefix),
		redisnotify.WithInboxLimit(cfg.Redis.InboxLimit),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.publisher = publisher

	reviewService, err := openReviewService(cfg.Reviews)
	if err != nil {
		s.Close()
		return nil, err
	}

	var retryOptions []shell.RetryOption
	if metrics != nil {
		retryOptions = append(retryOptions, shell.WithMetrics(metrics, persistenceOperation))
	}

	db, err := eventsourced.NewDatabase(es, publisher.ForUser, eventsourced.WithRetryOptions(retryOptions...))
	if err != nil {
		s.Close()
		return nil, err
	}

	libraryOptions := []library.Option{
		library.WithContextualLogger(logger),
		library.WithNotificationRetry(cfg.Notification.RetryAttempts, cfg.Notification.RetryBaseDelay),
	}

	if metrics != nil {
		libraryOptions = append(libraryOptions, library.WithMetrics(metrics))
	}

	s.library, err = library.NewLibrary(db, reviewService, libraryOptions...)
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *stack) openEventStore(
	ctx context.Context,
	cfg *config.Config,
	logger *logging.Adapter,
	metrics eventstore.MetricsCollector,
) (eventsourced.EventStore, error) {
	if cfg.Storage.Engine == config.EngineMemory {
		s.ephemeral = true
		s.migrate = func(context.Context) error { return nil }

		options := []memoryengine.Option{memoryengine.WithContextualLogger(logger)}
		if metrics != nil {
			options = append(options, memoryengine.WithMetrics(metrics))
		}

		return memoryengine.NewEventStore(options...), nil
	}

	dsn := cfg.Postgres.DSN()
	s.migrate = func(ctx context.Context) error { return postgresengine.MigrateDSN(ctx, dsn) }

	if cfg.Postgres.AutoMigrate {
		if err := s.migrate(ctx); err != nil {
			return nil, err
		}
	}

	options := []postgresengine.Option{
		postgresengine.WithTableName(cfg.Storage.Table),
		postgresengine.WithContextualLogger(logger),
	}
	if metrics != nil {
		options = append(options, postgresengine.WithMetrics(metrics))
	}

	switch cfg.Storage.Driver {
	case config.DriverSQL:
		db, err := config.NewSQLDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, func() { _ = db.Close() })

		return postgresengine.NewEventStoreFromSQLDB(db, options...)

	case config.DriverSQLX:
		db, err := config.NewSQLX(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, func() { _ = db.Close() })

		return postgresengine.NewEventStoreFromSQLX(db, options...)

	default:
		pool, err := config.NewPGXPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, pool.Close)

		return postgresengine.NewEventStoreFromPGXPool(pool, options...)
	}
}

// openMetrics returns nil when metrics are disabled. Both backends are scraped from /metrics on cfg.ListenAddr.
func (s *stack) openMetrics(cfg config.MetricsConfig, logger *logging.Adapter) (eventstore.MetricsCollector, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	var collector eventstore.MetricsCollector

	if cfg.Backend == config.MetricsBackendOTel {
		otelCollector, shutdown, err := newOTelCollector(registry)
		if err != nil {
			return nil, err
		}

		s.closers = append(s.closers, shutdown)
		collector = otelCollector
	} else {
		promCollector, err := promcollector.New(registry)
		if err != nil {
			return nil, err
		}

		collector = promCollector
	}

	s.serveMetrics(cfg.ListenAddr, registry, logger)

	return collector, nil
}

// newOTelCollector records through an OpenTelemetry MeterProvider whose reader is a Prometheus exporter
// registered on registry. shutdown flushes and stops the provider.
func newOTelCollector(registry prometheus.Registerer) (*otelcollector.Collector, func(), error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		_ = provider.Shutdown(ctx)
	}

	collector, err := otelcollector.New(provider.Meter(otelcollector.InstrumentationName))
	if err != nil {
		shutdown()
		return nil, nil, err
	}

	return collector, shutdown, nil
}

func openReviewService(cfg config.ReviewsConfig) (library.ReviewService, error) {
	client, err := httpreviews.NewClient(cfg.BaseURL, httpreviews.WithTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize == 0 {
		return client, nil
	}

	return cachedreviews.New(client, cfg.CacheSize, cfg.CacheTTL)
}

// serveMetrics exposes /metrics for as long as the stack lives.
func (s *stack) serveMetrics(addr string, registry *prometheus.Registry, logger *logging.Adapter) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err.Error())
		}
	}()

	s.closers = append(s.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		_ = server.Shutdown(ctx)
	})
}
