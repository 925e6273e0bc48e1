//go:build wireinject
// +build wireinject

package di

import (
	"OTCFeed/pkg/config"
	"OTCFeed/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideGenerator,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideTickCache,
		ProvideTickStorage,
		ProvideTickPublisher,

		// Use cases
		ProvideTickProcessor,
		ProvideTickEmitter,
		ProvideSymbolBootstrap,
		ProvideReferenceUpdater,
		ProvideReferencePipeline,
		ProvideReferenceCollector,
		ProvideConsumerHandlers,

		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
