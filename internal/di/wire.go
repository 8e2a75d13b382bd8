//go:build wireinject
// +build wireinject

package di

import (
	"FinCache/pkg/config"
	"FinCache/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideLockService,
		ProvideHTTPClient,

		// Stores and publisher
		ProvideBarStore,
		ProvideArticleStore,
		ProvideIngestPublisher,

		// Upstream providers
		ProvidePriceSources,
		ProvideNewsSource,
		ProvideScorer,

		// Use cases
		ProvideGapResolver,
		ProvideMerger,
		ProvideWindowWalker,
		ProvidePriceCache,
		ProvideNewsCache,
		ProvideRefreshJob,
		ProvideRefreshQueue,
		ProvideRefreshScheduler,
		ProvideKafkaConsumer,
		ProvideKafkaRefreshHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
