package di

import (
	"context"
	"fmt"
	"time"

	drepo "SignalBridge/internal/domain/repository"
	"SignalBridge/internal/handler/api"
	"SignalBridge/internal/jobs"
	internalrepo "SignalBridge/internal/repository"
	"SignalBridge/internal/service/relay"
	"SignalBridge/internal/usecase"
	pkgch "SignalBridge/pkg/clickhouse"
	"SignalBridge/pkg/config"
	xhttp "SignalBridge/pkg/http"
	pkgkafka "SignalBridge/pkg/kafka"
	applogger "SignalBridge/pkg/logger"
	"SignalBridge/pkg/metrics"
	"SignalBridge/pkg/queue"
	"SignalBridge/pkg/server"
	"SignalBridge/pkg/sqlite"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger. When Kafka is enabled
// and a log topic is configured, log records are mirrored to it.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.LogTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      internalrepo.NewKafkaLogPublisher(producer),
		})
	}
	return l, nil
}

// ProvideSQLiteClient opens the command store database and applies the schema.
func ProvideSQLiteClient(cfg *config.Config) (*sqlite.Client, error) {
	opts := []sqlite.ClientOption{
		sqlite.WithPath(cfg.Store.Path),
	}
	if cfg.Store.BusyTimeout > 0 {
		opts = append(opts, sqlite.WithBusyTimeout(cfg.Store.BusyTimeout))
	}
	if cfg.Store.MaxOpenConns > 0 {
		opts = append(opts, sqlite.WithMaxConnections(cfg.Store.MaxOpenConns, cfg.Store.MaxOpenConns))
	}
	client, err := sqlite.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("sqlite client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.Schema()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return client, nil
}

// ProvideStore creates the bridge store over the SQLite client.
func ProvideStore(client *sqlite.Client) drepo.Store {
	return internalrepo.NewBridgeStore(client.DB())
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
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

// ProvideEventPublisher creates the command lifecycle event publisher,
// or nil when Kafka is disabled.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient creates the audit mirror ClickHouse client,
// or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
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

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".delivery_logs (" +
			"request_id String, target String, payload String, status String, " +
			"error String, execution_time_ms Int64, retry_count Int32, created_at DateTime64(3)" +
			") ENGINE=MergeTree ORDER BY (target, created_at)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideRedisQueue creates the async job queue with the audit mirror
// job registered, or nil when Redis or ClickHouse is disabled.
func ProvideRedisQueue(cfg *config.Config, l *applogger.Logger, chClient *pkgch.Client) *queue.RedisQueue {
	if !cfg.Redis.Enabled || chClient == nil {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := queue.NewRedisQueue(l, &queue.QueueConfig{
		Workers:    cfg.Redis.Workers,
		RetryLimit: cfg.Redis.RetryMax,
		RetryDelay: time.Second,
	}, client, queue.ModeProducerConsumer)

	sink := internalrepo.NewClickHouseAuditSink(chClient.DB(), cfg.ClickHouse.Database+".delivery_logs")
	q.RegisterJob(jobs.NewAuditMirrorJob(sink))
	return q
}

// ProvideDeliveryRecorder creates the delivery log recorder.
func ProvideDeliveryRecorder(store drepo.Store, q *queue.RedisQueue, l *applogger.Logger) *usecase.DeliveryRecorder {
	var svc queue.QueueService
	if q != nil {
		svc = q
	}
	return usecase.NewDeliveryRecorder(store, svc, l)
}

// ProvideIngestionGateway creates the signal ingestion gateway.
func ProvideIngestionGateway(
	store drepo.Store,
	recorder *usecase.DeliveryRecorder,
	events drepo.EventPublisher,
	m drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.IngestionGateway {
	return usecase.NewIngestionGateway(
		store,
		recorder,
		events,
		m,
		l,
		cfg.Bridge.Retry.MaxAttempts,
		cfg.Bridge.Retry.BaseDelay,
		cfg.Bridge.Retry.AttemptTimeout,
	)
}

// ProvideLeaseQueue creates the command lease queue.
func ProvideLeaseQueue(store drepo.Store, m drepo.Metrics, l *applogger.Logger, cfg *config.Config) *usecase.LeaseQueue {
	return usecase.NewLeaseQueue(store, m, l, cfg.Bridge.LeaseTimeout, cfg.Bridge.MaxBatchSize, cfg.Bridge.Deviation)
}

// ProvideResultReporter creates the result reporter.
func ProvideResultReporter(store drepo.Store, events drepo.EventPublisher, m drepo.Metrics, l *applogger.Logger) *usecase.ResultReporter {
	return usecase.NewResultReporter(store, events, m, l)
}

// ProvideRelay creates the WebSocket relay source, or nil when disabled.
func ProvideRelay(cfg *config.Config, gateway *usecase.IngestionGateway, l *applogger.Logger) drepo.SignalSource {
	if !cfg.Relay.Enabled {
		return nil
	}
	return relay.New(cfg.Relay.URL, cfg.Relay.ReconnectDelay, cfg.Relay.PingInterval, gateway, l)
}

// ProvideRouter creates the HTTP route registrar.
func ProvideRouter(
	l *applogger.Logger,
	gateway *usecase.IngestionGateway,
	leaseQueue *usecase.LeaseQueue,
	reporter *usecase.ResultReporter,
	store drepo.Store,
) xhttp.Handler {
	bridge := api.NewBridgeHandler(l, gateway, leaseQueue, reporter)
	admin := api.NewAdminHandler(l, store)
	return api.NewRouter(bridge, admin)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	store drepo.Store,
	handler xhttp.Handler,
	leaseQueue *usecase.LeaseQueue,
	source drepo.SignalSource,
	q *queue.RedisQueue,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, l, store, handler, leaseQueue, source, q, producer, chClient)
}
