// Package eventbus routes events between one coordinator process and its
// satellite processes. Every process owns exactly one Bus; listeners
// registered on any bus see broadcasts raised on any other.
//
// A satellite never talks to its peers directly. Its broadcasts go to the
// coordinator, which re-delivers them to the other satellites. Requests a
// satellite cannot perform itself are delegated to the coordinator and
// matched with their responses by correlation id.
package eventbus

import (
	"context"
	"slices"
	"sync"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
)

// Bus is a process's endpoint on the event bus.
type Bus struct {
	role Role
	opts options
	log  logger.Logger

	mu        sync.RWMutex // guards everything below
	listeners map[EventType][]Callback
	channels  map[EventType]struct{}

	initialized bool
	satellites  []Satellite      // coordinator only; fixed after MainInit
	tag         string           // satellite only
	coordinator transport.Sender // satellite only
	closed      bool

	pending *correlator
}

// New creates a bus for the given role.
func New(role Role, log logger.Logger, opts ...Option) *Bus {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Bus{
		role:      role,
		opts:      o,
		log:       log,
		listeners: make(map[EventType][]Callback),
		channels:  make(map[EventType]struct{}),
	}
	if role == RoleSatellite {
		b.pending = newCorrelator(o.requestTimeout, o.nextID, log)
	}
	return b
}

// Role reports the role the bus was built with.
func (b *Bus) Role() Role { return b.role }

// MainInit installs the satellite directory. It must run once, in the
// coordinator, before anything is broadcast.
func (b *Bus) MainInit(satellites ...Satellite) error {
	if b.role != RoleCoordinator {
		return apperror.From(ErrWrongRole, errRoleMismatch("MainInit", b.role))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return ErrAlreadyInitialized
	}
	b.satellites = slices.Clone(satellites)
	b.initialized = true

	tags := make([]string, len(satellites))
	for i, s := range satellites {
		tags[i] = s.Tag
	}
	b.log.Info(context.Background(), "coordinator bus initialized",
		"satellites", tags,
		"fan_out_policy", b.opts.fanOut.String(),
	)
	return nil
}

// RendererInit connects a satellite bus to the coordinator. It must run
// once, in the satellite, before anything is broadcast.
func (b *Bus) RendererInit(tag string, coordinator transport.Sender) error {
	if b.role != RoleSatellite {
		return apperror.From(ErrWrongRole, errRoleMismatch("RendererInit", b.role))
	}
	if coordinator == nil {
		return apperror.New(apperror.CodeInvalidArgument, apperror.ReasonGeneral, "coordinator link is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.initialized {
		return ErrAlreadyInitialized
	}
	b.tag = tag
	b.coordinator = coordinator
	b.initialized = true

	b.log.Info(context.Background(), "satellite bus initialized", "tag", tag)
	return nil
}

// Tag is the satellite's own tag; empty in the coordinator.
func (b *Bus) Tag() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tag
}

// Satellites lists the directory tags in order; empty in a satellite.
func (b *Bus) Satellites() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tags := make([]string, len(b.satellites))
	for i, s := range b.satellites {
		tags[i] = s.Tag
	}
	return tags
}

// Close stops the bus. Pending requests are rejected with ErrClosed and
// later broadcasts and requests fail. Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	if b.pending != nil {
		b.pending.close()
	}
	b.log.Debug(context.Background(), "bus closed", "role", b.role.String())
}

// state returns a consistent view of the routing fields.
func (b *Bus) state() (initialized, closed bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized, b.closed
}
