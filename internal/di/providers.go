package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"FinCache/internal/domain/repository"
	domservice "FinCache/internal/domain/service"
	"FinCache/internal/handler/api"
	internalrepo "FinCache/internal/repository"
	"FinCache/internal/service/alphavantage"
	"FinCache/internal/service/newsapi"
	"FinCache/internal/service/sentiment"
	"FinCache/internal/service/yahoo"
	"FinCache/internal/usecase"
	"FinCache/pkg/cache"
	pkgch "FinCache/pkg/clickhouse"
	"FinCache/pkg/config"
	xhttp "FinCache/pkg/http"
	pkgkafka "FinCache/pkg/kafka"
	applogger "FinCache/pkg/logger"
	"FinCache/pkg/metrics"
	"FinCache/pkg/queue"
	"FinCache/pkg/ratelimit"
	"FinCache/pkg/retry"
	"FinCache/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lcfg := &applogger.Config{Level: "info", Format: "json", Output: "stdout"}
	if cfg.Environment == "development" {
		lcfg.Level = "debug"
		lcfg.Format = "console"
	}
	return applogger.New(lcfg)
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the
// database exists. Tables are created by the stores themselves.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
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

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideBarStore creates the price-bar store and its table.
func ProvideBarStore(chClient *pkgch.Client, cfg *config.Config) (repository.BarStore, error) {
	store := internalrepo.NewClickHouseBarStore(chClient.DB(), cfg.ClickHouse.BarsTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("bar store init: %w", err)
	}
	return store, nil
}

// ProvideArticleStore creates the article store and its table.
func ProvideArticleStore(chClient *pkgch.Client, cfg *config.Config) (repository.ArticleStore, error) {
	store := internalrepo.NewClickHouseArticleStore(chClient.DB(), cfg.ClickHouse.ArticlesTable)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("article store init: %w", err)
	}
	return store, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is
// disabled.
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

// ProvideIngestPublisher creates the ingest-event publisher. Merges
// work without one, so a disabled Kafka yields a nil publisher.
func ProvideIngestPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil || cfg.Kafka.IngestTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.IngestTopic)
}

// ProvideRedisCache creates the Redis cache used for cross-instance
// fetch locks and the refresh queue, or nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}

	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideLockService adapts the Redis cache to the lock interface the
// read-through facades take. A nil service means per-process locking
// only.
func ProvideLockService(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return nil
	}
	return rc
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
}

// ProvidePriceSources creates the upstream price providers.
func ProvidePriceSources(httpClient *xhttp.Client, cfg *config.Config) []repository.PriceSource {
	yfLimiter := ratelimit.New(cfg.Providers.Yahoo.CallsPerMinute, time.Minute)
	avLimiter := ratelimit.New(cfg.Providers.AlphaVantage.CallsPerMinute, time.Minute)

	return []repository.PriceSource{
		yahoo.New(httpClient, cfg.Providers.Yahoo.BaseURL, yfLimiter),
		alphavantage.New(httpClient, cfg.Providers.AlphaVantage.BaseURL, cfg.Providers.AlphaVantage.APIKey, avLimiter),
	}
}

// ProvideNewsSource creates the news provider.
func ProvideNewsSource(httpClient *xhttp.Client, cfg *config.Config) repository.NewsSource {
	limiter := ratelimit.New(cfg.Providers.NewsAPI.CallsPerMinute, time.Minute)
	return newsapi.New(httpClient, cfg.Providers.NewsAPI.BaseURL, cfg.Providers.NewsAPI.APIKey, limiter)
}

// ProvideScorer creates the sentiment scorer.
func ProvideScorer(cfg *config.Config) domservice.Scorer {
	return sentiment.New(
		cfg.Providers.Sentiment.BaseURL,
		cfg.Providers.Sentiment.APIKey,
		cfg.Providers.Sentiment.Model,
		retry.DefaultPolicy(),
	)
}

// ProvideGapResolver creates the gap resolver.
func ProvideGapResolver(bars repository.BarStore, articles repository.ArticleStore) *usecase.GapResolver {
	return usecase.NewGapResolver(bars, articles, time.Now)
}

// ProvideMerger creates the ingest merger.
func ProvideMerger(bars repository.BarStore, articles repository.ArticleStore, pub repository.Publisher, m repository.Metrics, log *applogger.Logger) *usecase.Merger {
	return usecase.NewMerger(bars, articles, pub, m, log)
}

// ProvideWindowWalker creates the paginated news walker.
func ProvideWindowWalker(news repository.NewsSource, m repository.Metrics, log *applogger.Logger) *usecase.WindowWalker {
	return usecase.NewWindowWalker(news, retry.DefaultPolicy(), usecase.NewestFirst, m, log)
}

// ProvidePriceCache creates the read-through price facade.
func ProvidePriceCache(gap *usecase.GapResolver, merger *usecase.Merger, bars repository.BarStore, sources []repository.PriceSource, locks cache.Service, m repository.Metrics, log *applogger.Logger) *usecase.PriceCache {
	return usecase.NewPriceCache(gap, merger, bars, sources, locks, m, log)
}

// ProvideNewsCache creates the read-through news facade.
func ProvideNewsCache(gap *usecase.GapResolver, walker *usecase.WindowWalker, merger *usecase.Merger, articles repository.ArticleStore, locks cache.Service, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.NewsCache {
	return usecase.NewNewsCache(gap, walker, merger, articles, locks, m, log, cfg.Providers.NewsAPI.LookbackDays, time.Now)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(log *applogger.Logger, prices *usecase.PriceCache, news *usecase.NewsCache, scorer domservice.Scorer, bars repository.BarStore, cfg *config.Config) xhttp.Handler {
	return api.NewMarketEchoHandler(log, prices, news, scorer, cfg.Providers.Yahoo.Symbols, []repository.BarStore{bars})
}

// ProvideRefreshJob creates the refresh job.
func ProvideRefreshJob(prices *usecase.PriceCache, news *usecase.NewsCache, log *applogger.Logger) *usecase.RefreshJob {
	return usecase.NewRefreshJob(prices, news, log, time.Now)
}

// ProvideRefreshQueue creates the Redis-backed refresh queue, or nil
// when refresh is disabled.
func ProvideRefreshQueue(cfg *config.Config, log *applogger.Logger, rc *cache.RedisCache, job *usecase.RefreshJob) *queue.RedisQueue {
	if !cfg.Refresh.Enabled || rc == nil {
		return nil
	}

	q := queue.NewRedisQueue(log, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, rc.Client(), queue.ModeProducerConsumer)
	q.RegisterJob(job)
	return q
}

// ProvideRefreshScheduler creates the periodic refresh scheduler, or
// nil when refresh is disabled.
func ProvideRefreshScheduler(q *queue.RedisQueue, cfg *config.Config, log *applogger.Logger) *usecase.RefreshScheduler {
	if q == nil {
		return nil
	}
	return usecase.NewRefreshScheduler(
		q,
		cfg.Refresh.Interval,
		cfg.Refresh.Symbols,
		cfg.Refresh.Source,
		cfg.Refresh.Queries,
		cfg.Providers.NewsAPI.Language,
		log,
	)
}

// ProvideKafkaConsumer creates the refresh-topic consumer, or nil when
// Kafka or the refresh topic is not configured.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.RefreshTopic == "" {
		return nil, nil
	}

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

// ProvideKafkaRefreshHandler creates the handler for the refresh topic.
func ProvideKafkaRefreshHandler(cfg *config.Config, job *usecase.RefreshJob, m repository.Metrics) *usecase.KafkaRefreshHandler {
	return usecase.NewKafkaRefreshHandler(cfg.Kafka.RefreshTopic, job, m)
}

// kafkaLogPublisher ships aggregated error logs to a Kafka topic.
type kafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func (p kafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRefreshHandler,
	jobQueue *queue.RedisQueue,
	scheduler *usecase.RefreshScheduler,
	producer *pkgkafka.Producer,
	rc *cache.RedisCache,
) *server.App {
	app := server.New(cfg, log, handler, chClient)

	if producer != nil && cfg.Kafka.LogsTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      kafkaLogPublisher{producer: producer},
		})
		app.AddCloser("log collector", func() error {
			log.RemoveCollector()
			return nil
		})
	}

	if consumer != nil {
		app.SetKafkaConsumer(consumer, kh)
	}
	if jobQueue != nil {
		app.SetRefresh(jobQueue, scheduler)
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	if rc != nil {
		app.AddCloser("redis", rc.Close)
	}
	return app
}
