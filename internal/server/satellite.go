package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/philly/ipcbus/internal/appevents"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport/wstransport"
	"github.com/philly/ipcbus/internal/requests"
)

// SatelliteApp runs one satellite process.
type SatelliteApp struct {
	config   Config
	client   *wstransport.Client
	registry *eventbus.Registry
	log      logger.Logger
	instance uuid.UUID

	stopOnce sync.Once
	stopped  chan struct{}
}

func NewSatelliteApp(config Config, client *wstransport.Client, registry *eventbus.Registry, log logger.Logger) *SatelliteApp {
	return &SatelliteApp{
		config:   config,
		client:   client,
		registry: registry,
		log:      log,
		instance: uuid.New(),
		stopped:  make(chan struct{}),
	}
}

// Run announces the satellite, serves coordinator traffic and, on the way
// out, tells the other processes it is closing.
func (a *SatelliteApp) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := a.registry.Instance()
	bus.AddEventListener(appevents.Ping, a.onPing)
	bus.AddEventListener(appevents.Window2BeforeClose, a.onPeerClosing)
	bus.AddEventListener(appevents.CoordinatorShutdown, a.onCoordinatorShutdown)

	// Serve outlives ctx so the before-close broadcast can still go out.
	serveCtx, cancelServe := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelServe()
	serveErr := make(chan error, 1)
	go func() { serveErr <- a.client.Serve(serveCtx, a.registry) }()

	ready := appevents.SatelliteReadyEvent{Tag: a.config.SatelliteTag, InstanceID: a.instance, OccurredAt: time.Now()}
	if err := bus.Broadcast(ctx, appevents.SatelliteReady, ready); err != nil {
		a.log.Warn(ctx, "ready broadcast failed", "error", err)
	}
	if a.config.SatelliteRequestURL != "" {
		go a.delegate(ctx, bus, a.config.SatelliteRequestURL)
	}

	var runErr error
	connected := true
	select {
	case <-ctx.Done():
		a.log.Info(context.Background(), "shutting down satellite")
	case <-a.stopped:
		a.log.Info(context.Background(), "coordinator is shutting down, stopping satellite")
	case runErr = <-serveErr:
		connected = false
		if runErr != nil {
			a.log.Error(context.Background(), "lost coordinator connection", "error", runErr)
		}
	}

	if connected {
		a.announceClose(bus)
		_ = a.client.Close()
	}
	a.registry.Shutdown()
	return runErr
}

func (a *SatelliteApp) announceClose(bus *eventbus.Bus) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	ev := appevents.BeforeCloseEvent{Tag: a.config.SatelliteTag, InstanceID: a.instance, OccurredAt: time.Now()}
	if err := bus.Broadcast(ctx, appevents.BeforeClose(a.config.SatelliteTag), ev); err != nil {
		a.log.Warn(ctx, "before-close broadcast failed", "error", err)
	}
}

// delegate has the coordinator fetch url and logs the outcome.
func (a *SatelliteApp) delegate(ctx context.Context, bus *eventbus.Bus, url string) {
	var result json.RawMessage
	err := bus.Request(ctx, requests.HTTPRequest{Method: http.MethodGet, URL: url}, &result)
	if err != nil {
		a.log.Warn(ctx, "delegated request failed", "url", url, "error", err)
		return
	}
	a.log.Info(ctx, "delegated request succeeded", "url", url, "bytes", len(result))
}

func (a *SatelliteApp) onPing(ctx context.Context, args eventbus.Args) {
	ev, err := appevents.Decode[appevents.PingEvent](args)
	if err != nil {
		a.log.Warn(ctx, "malformed ping", "error", err)
		return
	}
	a.log.Info(ctx, "ping", "from", ev.From, "greets", ev.Greets)
}

func (a *SatelliteApp) onPeerClosing(ctx context.Context, args eventbus.Args) {
	ev, err := appevents.Decode[appevents.BeforeCloseEvent](args)
	if err != nil {
		a.log.Warn(ctx, "malformed before-close event", "error", err)
		return
	}
	a.log.Info(ctx, "peer closing", "tag", ev.Tag)
}

func (a *SatelliteApp) onCoordinatorShutdown(ctx context.Context, args eventbus.Args) {
	ev, _ := appevents.Decode[appevents.CoordinatorShutdownEvent](args)
	a.log.Info(ctx, "coordinator shutdown announced", "reason", ev.Reason)
	a.stopOnce.Do(func() { close(a.stopped) })
}
