//go:build wireinject
// +build wireinject

package di

import (
	"MacroPull/pkg/config"
	"MacroPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Shared infrastructure
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSeriesStore,
		ProvideObservationPublisher,
		ProvideMarketStream,
		ProvideSnapshotCache,

		// Use cases
		ProvideObservationProcessor,
		ProvideObservationCollector,
		ProvideKafkaObservationsHandler,
		ProvideFredClient,
		ProvideFredSync,
		ProvideStudyRunner,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
