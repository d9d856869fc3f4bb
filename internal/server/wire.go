//go:build wireinject
// +build wireinject

package server

import (
	"context"

	"github.com/google/wire"

	"github.com/philly/ipcbus/internal/adapters/rest"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/metrics"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
	"github.com/philly/ipcbus/internal/requests"
)

// InitializeCoordinator creates a fully configured coordinator
func InitializeCoordinator() (*CoordinatorApp, func(), error) {
	wire.Build(
		// Bootstrap phase
		LoadCoordinatorConfig,
		provideCoordinatorLoggerConfig,
		logger.ProviderSet,

		// Transport and bus
		provideHub,
		provideExecutorConfig,
		requests.ProviderSet,
		wire.Bind(new(eventbus.Executor), new(*requests.HTTPExecutor)),
		provideMetrics,
		wire.Bind(new(eventbus.Observer), new(*metrics.Metrics)),
		provideCoordinatorBusFactory,
		provideCoordinatorRegistry,

		// REST handlers
		rest.ProviderSet,
		provideVersion,
		provideCoordinatorRole,
		wire.Bind(new(rest.SatelliteStatusSource), new(*wstransport.Hub)),

		// HTTP Server
		NewCoordinatorRouter,
		NewHTTPServer,

		NewCoordinatorApp,
	)

	return nil, nil, nil
}

// InitializeSatellite creates a satellite connected to the coordinator
func InitializeSatellite(ctx context.Context) (*SatelliteApp, func(), error) {
	wire.Build(
		LoadSatelliteConfig,
		provideSatelliteLoggerConfig,
		logger.ProviderSet,

		provideSatelliteClient,
		provideSatelliteBusFactory,
		eventbus.ProviderSet,

		NewSatelliteApp,
	)

	return nil, nil, nil
}
