//go:build wireinject
// +build wireinject

package di

import (
	"SignalBridge/pkg/config"
	"SignalBridge/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideSQLiteClient,
		ProvideLogger,
		ProvideRedisQueue,

		// Repositories
		ProvideStore,
		ProvideEventPublisher,

		// Use cases
		ProvideDeliveryRecorder,
		ProvideIngestionGateway,
		ProvideLeaseQueue,
		ProvideResultReporter,
		ProvideRelay,

		// HTTP surface
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
