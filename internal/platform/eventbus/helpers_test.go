package eventbus_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
	"github.com/philly/ipcbus/internal/platform/transport/memory"
)

// calls records listener invocations.
type calls struct {
	mu   sync.Mutex
	args []eventbus.Args
}

func (c *calls) record(_ context.Context, args eventbus.Args) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.args = append(c.args, args)
}

func (c *calls) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.args)
}

func (c *calls) at(i int) eventbus.Args {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.args[i]
}

// sentMessages is a transport.Sender that keeps everything it is given.
type sentMessages struct {
	mu   sync.Mutex
	msgs []transport.Message
	err  error
}

func (s *sentMessages) Send(_ context.Context, msg transport.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *sentMessages) all() []transport.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Message(nil), s.msgs...)
}

func decodeInt(t *testing.T, args eventbus.Args, i int) int {
	t.Helper()
	var v int
	require.NoError(t, args.Decode(i, &v))
	return v
}

// topology is a coordinator plus satellites joined by memory pipes.
type topology struct {
	coord *eventbus.Bus
	sats  map[string]*eventbus.Bus
}

func newTopology(t *testing.T, opts []eventbus.Option, tags ...string) *topology {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	echo := eventbus.WithExecutor(eventbus.ExecutorFunc(
		func(_ context.Context, payload json.RawMessage) (json.RawMessage, error) {
			return payload, nil
		}))
	coord := eventbus.New(eventbus.RoleCoordinator, logger.Nop{}, append([]eventbus.Option{echo}, opts...)...)

	top := &topology{coord: coord, sats: make(map[string]*eventbus.Bus)}
	var dir []eventbus.Satellite
	for _, tag := range tags {
		coordEnd, satEnd := memory.Pipe(tag)
		sat := eventbus.New(eventbus.RoleSatellite, logger.Nop{}, opts...)
		require.NoError(t, sat.RendererInit(tag, satEnd))
		dir = append(dir, eventbus.Satellite{Tag: tag, Handle: coordEnd})
		top.sats[tag] = sat

		go func() { _ = coordEnd.Serve(ctx, coord) }()
		go func() { _ = satEnd.Serve(ctx, sat) }()
	}
	require.NoError(t, coord.MainInit(dir...))

	t.Cleanup(func() {
		cancel()
		coord.Close()
		for _, s := range top.sats {
			s.Close()
		}
	})
	return top
}

// flush returns once every message the coordinator has sent to tag before
// now has been handled: a request's response travels behind them.
func (top *topology) flush(t *testing.T, tag string) {
	t.Helper()
	require.NoError(t, top.sats[tag].Request(context.Background(), "flush", nil))
}
