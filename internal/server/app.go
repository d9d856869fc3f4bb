package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/philly/ipcbus/internal/appevents"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
)

const shutdownTimeout = 10 * time.Second

// CoordinatorApp runs the hub, the HTTP surface and the coordinator bus.
type CoordinatorApp struct {
	server   *http.Server
	hub      *wstransport.Hub
	registry *eventbus.Registry
	log      logger.Logger
}

func NewCoordinatorApp(server *http.Server, hub *wstransport.Hub, registry *eventbus.Registry, log logger.Logger) *CoordinatorApp {
	return &CoordinatorApp{
		server:   server,
		hub:      hub,
		registry: registry,
		log:      log,
	}
}

// Run starts the coordinator and handles graceful shutdown
func (a *CoordinatorApp) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.listen(a.registry.Instance())

	serverErrors := make(chan error, 1)
	go func() {
		a.log.Info(ctx, "starting coordinator", "address", a.server.Addr, "satellites", a.registry.Instance().Satellites())
		serverErrors <- a.server.ListenAndServe()
	}()

	reason := "signal"
	var runErr error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("server error: %w", err)
			reason = "server error"
		}
	case <-ctx.Done():
		a.log.Info(context.Background(), "shutting down coordinator")
	}

	return errors.Join(runErr, a.shutdown(reason))
}

// listen wires the coordinator's own application listeners.
func (a *CoordinatorApp) listen(bus *eventbus.Bus) {
	bus.AddEventListener(appevents.SatelliteReady, a.onSatelliteReady)
	for _, tag := range bus.Satellites() {
		bus.AddEventListener(appevents.BeforeClose(tag), a.onBeforeClose)
	}
}

// onSatelliteReady greets a new satellite by pinging everyone.
func (a *CoordinatorApp) onSatelliteReady(ctx context.Context, args eventbus.Args) {
	ev, err := appevents.Decode[appevents.SatelliteReadyEvent](args)
	if err != nil {
		a.log.Warn(ctx, "malformed satellite ready event", "error", err)
		return
	}
	a.log.Info(ctx, "satellite ready", "tag", ev.Tag, "instance_id", ev.InstanceID.String())

	ping := appevents.PingEvent{From: "coordinator", Greets: ev.Tag, OccurredAt: time.Now()}
	if err := a.registry.Instance().Broadcast(ctx, appevents.Ping, ping); err != nil {
		a.log.Warn(ctx, "ping broadcast incomplete", "error", err)
	}
}

func (a *CoordinatorApp) onBeforeClose(ctx context.Context, args eventbus.Args) {
	ev, err := appevents.Decode[appevents.BeforeCloseEvent](args)
	if err != nil {
		a.log.Warn(ctx, "malformed before-close event", "error", err)
		return
	}
	a.log.Info(ctx, "satellite closing", "tag", ev.Tag, "instance_id", ev.InstanceID.String())
}

func (a *CoordinatorApp) shutdown(reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	bye := appevents.CoordinatorShutdownEvent{Reason: reason, OccurredAt: time.Now()}
	if err := a.registry.Instance().Broadcast(ctx, appevents.CoordinatorShutdown, bye); err != nil {
		a.log.Warn(ctx, "shutdown broadcast incomplete", "error", err)
	}

	// Hijacked websocket connections are not tracked by Shutdown.
	a.hub.Close()
	err := a.server.Shutdown(ctx)
	a.registry.Shutdown()

	if err != nil {
		return fmt.Errorf("failed to gracefully shutdown server: %w", err)
	}
	a.log.Info(ctx, "coordinator stopped")
	return nil
}
