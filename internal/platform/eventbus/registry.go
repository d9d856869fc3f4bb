package eventbus

import (
	"context"
	"sync"

	"github.com/philly/ipcbus/internal/platform/transport"
)

// Registry holds the process's bus. The bus is built on first use;
// Shutdown closes it and forgets it, so the next Instance builds a fresh
// one. Registry is also a transport.Handler that feeds the current bus,
// which lets transports outlive individual bus instances.
type Registry struct {
	factory func() *Bus

	mu       sync.Mutex
	bus      *Bus
	shutdown bool
}

// NewRegistry creates a registry that builds buses with factory.
func NewRegistry(factory func() *Bus) *Registry {
	return &Registry{factory: factory}
}

// Instance returns the process's bus, building it if needed.
func (r *Registry) Instance() *Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus == nil {
		r.bus = r.factory()
	}
	r.shutdown = false
	return r.bus
}

// current is the bus messages should go to. Before first use it builds
// one like Instance; after Shutdown it is nil until Instance is called.
func (r *Registry) current() *Bus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bus == nil && !r.shutdown {
		r.bus = r.factory()
	}
	return r.bus
}

// Shutdown closes the current bus, if any, and clears the reference.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	bus := r.bus
	r.bus = nil
	r.shutdown = true
	r.mu.Unlock()

	if bus != nil {
		bus.Close()
	}
}

// HandleMessage forwards to the current bus. Messages still in flight
// after Shutdown are dropped rather than reviving the bus.
func (r *Registry) HandleMessage(ctx context.Context, msg transport.Message, replyTo transport.Sender) {
	bus := r.current()
	if bus == nil {
		return
	}
	bus.HandleMessage(ctx, msg, replyTo)
}

var _ transport.Handler = (*Registry)(nil)
var _ transport.Handler = (*Bus)(nil)
