package server

import (
	"context"

	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/metrics"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
	"github.com/philly/ipcbus/internal/requests"
)

// provideVersion provides the application version
func provideVersion() string {
	return "1.0.0"
}

func provideCoordinatorRole() eventbus.Role {
	return eventbus.RoleCoordinator
}

// provideCoordinatorLoggerConfig creates logger config from server config
func provideCoordinatorLoggerConfig(config Config) logger.Config {
	return logger.Config{
		Environment: config.Environment,
		LogLevel:    config.LogLevel,
		Component:   "coordinator",
	}
}

func provideSatelliteLoggerConfig(config Config) logger.Config {
	return logger.Config{
		Environment: config.Environment,
		LogLevel:    config.LogLevel,
		Component:   "satellite:" + config.SatelliteTag,
	}
}

func provideExecutorConfig(config Config) requests.Config {
	return requests.Config{Timeout: config.HTTPClientTimeout}
}

// provideHub creates the websocket hub for the configured directory.
func provideHub(config Config, log logger.Logger) (*wstransport.Hub, func()) {
	hub := wstransport.NewHub(config.Tags(), log)
	return hub, hub.Close
}

// provideMetrics creates the coordinator's collectors.
func provideMetrics(hub *wstransport.Hub) *metrics.Metrics {
	m := metrics.New()
	m.TrackConnectedSatellites(func() int {
		n := 0
		for _, st := range hub.Status() {
			if st.Connected {
				n++
			}
		}
		return n
	})
	return m
}

// provideCoordinatorBusFactory builds coordinator buses whose directory is
// the hub's peers. Peer handles are stable across reconnects, so every bus
// the registry builds shares them.
func provideCoordinatorBusFactory(
	config Config,
	hub *wstransport.Hub,
	executor eventbus.Executor,
	observer eventbus.Observer,
	log logger.Logger,
) func() *eventbus.Bus {
	return func() *eventbus.Bus {
		opts := append(config.BusOptions(), eventbus.WithExecutor(executor), eventbus.WithObserver(observer))
		bus := eventbus.New(eventbus.RoleCoordinator, log, opts...)

		peers := hub.Peers()
		satellites := make([]eventbus.Satellite, len(peers))
		for i, p := range peers {
			satellites[i] = eventbus.Satellite{Tag: p.Tag(), Handle: p}
		}
		if err := bus.MainInit(satellites...); err != nil {
			log.Error(context.Background(), "coordinator bus init failed", "error", err)
		}
		return bus
	}
}

// provideCoordinatorRegistry creates the registry and routes hub traffic
// into it.
func provideCoordinatorRegistry(factory func() *eventbus.Bus, hub *wstransport.Hub) (*eventbus.Registry, func()) {
	registry := eventbus.NewRegistry(factory)
	hub.Handle(registry)
	return registry, registry.Shutdown
}

// provideSatelliteClient dials the coordinator.
func provideSatelliteClient(ctx context.Context, config Config, log logger.Logger) (*wstransport.Client, func(), error) {
	client, err := wstransport.Dial(ctx, config.CoordinatorURL, config.SatelliteTag, log)
	if err != nil {
		log.Error(ctx, "failed to connect to coordinator", "url", config.CoordinatorURL, "error", err)
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// provideSatelliteBusFactory builds satellite buses linked to client.
func provideSatelliteBusFactory(config Config, client *wstransport.Client, log logger.Logger) func() *eventbus.Bus {
	return func() *eventbus.Bus {
		bus := eventbus.New(eventbus.RoleSatellite, log, config.BusOptions()...)
		if err := bus.RendererInit(config.SatelliteTag, client); err != nil {
			log.Error(context.Background(), "satellite bus init failed", "error", err)
		}
		return bus
	}
}
