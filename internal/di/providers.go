package di

import (
	"context"
	"fmt"
	"time"

	"OTCFeed/internal/domain/models"
	"OTCFeed/internal/domain/repository"
	"OTCFeed/internal/handler/api"
	mid "OTCFeed/internal/middleware"
	internalrepo "OTCFeed/internal/repository"
	"OTCFeed/internal/service/finnhub"
	"OTCFeed/internal/services/otc"
	"OTCFeed/internal/usecase"
	"OTCFeed/pkg/cache"
	pkgch "OTCFeed/pkg/clickhouse"
	"OTCFeed/pkg/config"
	pkgkafka "OTCFeed/pkg/kafka"
	applogger "OTCFeed/pkg/logger"
	"OTCFeed/pkg/metrics"
	"OTCFeed/pkg/server"

	"github.com/segmentio/kafka-go"
)

// ConsumerHandlers is the set of topic handlers registered on the consumer.
type ConsumerHandlers []pkgkafka.MessageHandler

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&cfg.Logging)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideGenerator creates the OTC engine. Seed 0 seeds from the clock.
func ProvideGenerator(cfg *config.Config) *otc.Generator {
	sources := otc.TimeSeededSources()
	if cfg.Generator.Seed != 0 {
		sources = otc.SeededSources(cfg.Generator.Seed)
	}
	return otc.NewGenerator(otc.NewStore(otc.WithSources(sources)))
}

// ProvideClickHouseClient creates a ClickHouse client and the tick table.
// Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(cfg.ClickHouse.Config)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := internalrepo.TickSchema(tickTable(cfg))
	if db := cfg.ClickHouse.Database; db != "" && db != "default" {
		stmts = append([]string{"CREATE DATABASE IF NOT EXISTS " + db}, stmts...)
	}
	if err := client.InitSchema(ctx, stmts...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func tickTable(cfg *config.Config) string {
	return cfg.ClickHouse.Table(internalrepo.DefaultTickTable)
}

// ProvideKafkaProducer creates a Kafka producer for the kafka backend, nil otherwise.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
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

// ProvideCache returns Redis when enabled, an in-process cache otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(cache.WithMemoryConfig(cfg.Redis.Memory)), nil
	}
	c, err := cache.NewRedisCache(cfg.Redis.RedisConfig)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

// ProvideTickCache stores the last tick per symbol.
func ProvideTickCache(c cache.Service, cfg *config.Config) repository.TickCache {
	return internalrepo.NewCacheTickCache(c, cfg.Redis.TickTTL)
}

// ProvideTickStorage creates ClickHouse tick storage, nil when ClickHouse is disabled.
func ProvideTickStorage(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) repository.TickStorage {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseTickStorage(ch.DB(), tickTable(cfg), l)
}

// ProvideTickPublisher creates the Kafka tick publisher, nil without a producer.
func ProvideTickPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.TickPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
}

func ProvideTickProcessor(
	pub repository.TickPublisher,
	store repository.TickStorage,
	metrics repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.TickProcessor {
	return usecase.NewTickProcessor(
		pub,
		store,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
		usecase.WithProcessorLogger(l),
	)
}

func ProvideTickEmitter(
	gen *otc.Generator,
	proc *usecase.TickProcessor,
	tc repository.TickCache,
	metrics repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.TickEmitter {
	return usecase.NewTickEmitter(gen, proc, tc, metrics, cfg.Generator.TickInterval, l)
}

func ProvideSymbolBootstrap(gen *otc.Generator, tc repository.TickCache, cfg *config.Config, l *applogger.Logger) *usecase.SymbolBootstrap {
	return usecase.NewSymbolBootstrap(gen, tc, cfg.Markets, l)
}

func ProvideReferenceUpdater(gen *otc.Generator, metrics repository.Metrics, cfg *config.Config) *usecase.ReferenceUpdater {
	cfgs := make([]models.SymbolConfig, len(cfg.Markets))
	for i, m := range cfg.Markets {
		cfgs[i] = m.SymbolConfig
	}
	return usecase.NewReferenceUpdater(gen, metrics, cfgs...)
}

func ProvideReferencePipeline(updater *usecase.ReferenceUpdater, metrics repository.Metrics, cfg *config.Config) *mid.ReferencePipeline {
	return mid.NewReferencePipeline(updater, metrics, mid.WithMinInterval(cfg.Finnhub.MinInterval))
}

// ProvideReferenceCollector streams Finnhub quotes for the tracked base
// symbols. Returns nil when Finnhub is disabled.
func ProvideReferenceCollector(
	updater *usecase.ReferenceUpdater,
	pipe *mid.ReferencePipeline,
	metrics repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ReferenceCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		updater.BaseSymbols(),
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		l,
	)
	return usecase.NewReferenceCollector(stream, pipe, metrics, l)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML, nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
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
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook(),
		pkgkafka.HookFuncs{
			Err: func(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
				l.Warn("kafka message failed",
					applogger.String("topic", topic),
					applogger.Int64("offset", km.Offset),
					applogger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
					applogger.Error(err),
				)
			},
		},
	))
	return consumer, nil
}

// ProvideConsumerHandlers registers the ticks topic when storage exists and
// the reference topic when one is configured.
func ProvideConsumerHandlers(
	store repository.TickStorage,
	pipe *mid.ReferencePipeline,
	metrics repository.Metrics,
	cfg *config.Config,
) ConsumerHandlers {
	var hs ConsumerHandlers
	if store != nil && cfg.Kafka.Topic != "" && cfg.Backend.Type == usecase.BackendKafka {
		hs = append(hs, usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, metrics))
	}
	if cfg.Kafka.ReferenceTopic != "" {
		hs = append(hs, usecase.NewKafkaReferenceHandler(cfg.Kafka.ReferenceTopic, pipe, metrics))
	}
	return hs
}

// ProvideHTTPHandler creates the OTC API. Symbols created over HTTP start
// emitting and follow their base symbol immediately; a new base symbol is
// subscribed on the reference stream when one is running.
func ProvideHTTPHandler(
	l *applogger.Logger,
	gen *otc.Generator,
	tc repository.TickCache,
	store repository.TickStorage,
	emitter *usecase.TickEmitter,
	updater *usecase.ReferenceUpdater,
	collector *usecase.ReferenceCollector,
) *api.OTCEchoHandler {
	opts := []api.Option{
		api.WithTickCache(tc),
		api.WithInitHook(func(c models.SymbolConfig) {
			updater.Track(c)
			emitter.Track(c.Symbol)
			if collector == nil {
				return
			}
			if err := collector.Track(context.Background(), c.BaseSymbol); err != nil {
				l.Warn("reference subscribe failed",
					applogger.String("symbol", c.Symbol),
					applogger.String("base_symbol", c.BaseSymbol),
					applogger.Error(err),
				)
			}
		}),
	}
	if store != nil {
		opts = append(opts, api.WithTickStorage(store))
	}
	return api.NewOTCEchoHandler(l, gen, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	bootstrap *usecase.SymbolBootstrap,
	emitter *usecase.TickEmitter,
	proc *usecase.TickProcessor,
	collector *usecase.ReferenceCollector,
	consumer *pkgkafka.Consumer,
	handlers ConsumerHandlers,
	h *api.OTCEchoHandler,
	chClient *pkgch.Client,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, server.Components{
		Bootstrap:  bootstrap,
		Emitter:    emitter,
		Processor:  proc,
		Collector:  collector,
		Consumer:   consumer,
		Handlers:   handlers,
		HTTP:       h,
		ClickHouse: chClient,
		Cache:      c,
	})
}
