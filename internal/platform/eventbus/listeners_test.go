package eventbus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/eventbus"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
)

func newCoordinator(t *testing.T, opts ...eventbus.Option) *eventbus.Bus {
	t.Helper()
	bus := eventbus.New(eventbus.RoleCoordinator, logger.Nop{}, opts...)
	require.NoError(t, bus.MainInit())
	t.Cleanup(bus.Close)
	return bus
}

func TestAddEventListener_BroadcastInvokesOnceWithArgs(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	bus.AddEventListener("ping", rec.record)

	require.NoError(t, bus.Broadcast(context.Background(), "ping", 42, "hello", true))

	require.Equal(t, 1, rec.count())
	args := rec.at(0)
	require.Equal(t, 3, args.Len())
	assert.Equal(t, 42, decodeInt(t, args, 0))
	var s string
	require.NoError(t, args.Decode(1, &s))
	assert.Equal(t, "hello", s)
	var b bool
	require.NoError(t, args.Decode(2, &b))
	assert.True(t, b)
}

func TestBroadcast_NoArguments(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	bus.AddEventListener("Window2BeforeClose", rec.record)

	require.NoError(t, bus.Broadcast(context.Background(), "Window2BeforeClose"))

	require.Equal(t, 1, rec.count())
	assert.Zero(t, rec.at(0).Len())
}

func TestBroadcast_OtherTypesUntouched(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	bus.AddEventListener("ping", rec.record)

	require.NoError(t, bus.Broadcast(context.Background(), "pong", 1))
	require.NoError(t, bus.Broadcast(context.Background(), "Ping", 1))

	assert.Zero(t, rec.count())
}

func TestRemoveEventListener_StopsInvocation(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	cb := eventbus.Callback(rec.record)
	bus.AddEventListener("ping", cb)

	require.NoError(t, bus.RemoveEventListener("ping", cb))
	require.NoError(t, bus.Broadcast(context.Background(), "ping", 1))

	assert.Zero(t, rec.count())
	assert.True(t, bus.HasEventType("ping"), "entry survives its last listener")
	assert.Zero(t, bus.ListenerCount("ping"))
}

func TestRemoveEventListener_UnknownType(t *testing.T) {
	bus := newCoordinator(t)

	err := bus.RemoveEventListener("never-registered", (&calls{}).record)

	require.Error(t, err)
	assert.ErrorIs(t, err, eventbus.ErrUnknownEventType)
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}

func TestRemoveEventListener_AbsentCallbackIsNoop(t *testing.T) {
	bus := newCoordinator(t)
	registered := &calls{}
	bus.AddEventListener("ping", registered.record)

	other := func(context.Context, eventbus.Args) {}
	require.NoError(t, bus.RemoveEventListener("ping", other))

	assert.Equal(t, 1, bus.ListenerCount("ping"))
	require.NoError(t, bus.Broadcast(context.Background(), "ping"))
	assert.Equal(t, 1, registered.count())
}

func TestListeners_RunInRegistrationOrder(t *testing.T) {
	bus := newCoordinator(t)
	var order []string
	first := func(context.Context, eventbus.Args) { order = append(order, "C1") }
	second := func(context.Context, eventbus.Args) { order = append(order, "C2") }
	third := func(context.Context, eventbus.Args) { order = append(order, "C3") }

	bus.AddEventListener("ping", first)
	bus.AddEventListener("ping", second)
	bus.AddEventListener("ping", third)
	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Equal(t, []string{"C1", "C2", "C3"}, order)
}

func TestAddEventListener_DuplicatesAreNotDeduplicated(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	cb := eventbus.Callback(rec.record)
	bus.AddEventListener("ping", cb)
	bus.AddEventListener("ping", cb)

	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Equal(t, 2, rec.count())
	assert.Equal(t, 2, bus.ListenerCount("ping"))

	// One removal drops one registration.
	require.NoError(t, bus.RemoveEventListener("ping", cb))
	require.NoError(t, bus.Broadcast(context.Background(), "ping"))
	assert.Equal(t, 3, rec.count())
}

func TestWithUniqueListeners_RegistrationIsIdempotent(t *testing.T) {
	bus := newCoordinator(t, eventbus.WithUniqueListeners())
	rec := &calls{}
	cb := eventbus.Callback(rec.record)
	bus.AddEventListener("ping", cb)
	bus.AddEventListener("ping", cb)

	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, 1, bus.ListenerCount("ping"))
}

// counter builds a distinct closure per name from one literal.
//
//go:noinline
func counter(got map[string]int, name string) eventbus.Callback {
	return func(context.Context, eventbus.Args) { got[name]++ }
}

func TestRemoveEventListener_ClosuresFromOneLiteralAreDistinct(t *testing.T) {
	bus := newCoordinator(t)
	got := map[string]int{}
	c1 := counter(got, "c1")
	c2 := counter(got, "c2")
	bus.AddEventListener("ping", c2)
	bus.AddEventListener("ping", c1)

	require.NoError(t, bus.RemoveEventListener("ping", c1))
	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Equal(t, map[string]int{"c2": 1}, got)
}

func TestRemoveEventListener_MethodValuesOfDifferentReceivers(t *testing.T) {
	bus := newCoordinator(t)
	a, b := &calls{}, &calls{}
	cbA, cbB := eventbus.Callback(a.record), eventbus.Callback(b.record)
	bus.AddEventListener("ping", cbB)
	bus.AddEventListener("ping", cbA)

	require.NoError(t, bus.RemoveEventListener("ping", cbA))
	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Zero(t, a.count())
	assert.Equal(t, 1, b.count())
}

func TestWithUniqueListeners_KeepsDistinctClosures(t *testing.T) {
	bus := newCoordinator(t, eventbus.WithUniqueListeners())
	got := map[string]int{}
	for _, tag := range []string{"a", "b"} {
		bus.AddEventListener("x", counter(got, tag))
	}

	assert.Equal(t, 2, bus.ListenerCount("x"))
	require.NoError(t, bus.Broadcast(context.Background(), "x"))
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, got)
}

func TestListenerPanicDoesNotStopOthers(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	bus.AddEventListener("ping", func(context.Context, eventbus.Args) { panic("boom") })
	bus.AddEventListener("ping", rec.record)

	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Equal(t, 1, rec.count())
}

func TestListenerMayRemoveItselfDuringDispatch(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	var self eventbus.Callback
	self = func(ctx context.Context, args eventbus.Args) {
		_ = bus.RemoveEventListener("ping", self)
	}
	bus.AddEventListener("ping", self)
	bus.AddEventListener("ping", rec.record)

	require.NoError(t, bus.Broadcast(context.Background(), "ping"))
	require.NoError(t, bus.Broadcast(context.Background(), "ping"))

	assert.Equal(t, 2, rec.count())
	assert.Equal(t, 1, bus.ListenerCount("ping"))
}

func TestAddEventListener_IgnoresNil(t *testing.T) {
	bus := newCoordinator(t)
	bus.AddEventListener("ping", nil)

	assert.False(t, bus.HasEventType("ping"))
}

func TestBroadcast_UnencodableArgument(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	bus.AddEventListener("ping", rec.record)

	err := bus.Broadcast(context.Background(), "ping", make(chan int))

	assert.ErrorIs(t, err, eventbus.ErrEncodeArgument)
	assert.Zero(t, rec.count())
}

func TestEventChannel_OpenedOnFirstListener(t *testing.T) {
	bus := newCoordinator(t)
	rec := &calls{}
	msg := transport.Message{Channel: "direct", Args: eventbus.Args{[]byte(`7`)}}

	bus.HandleMessage(context.Background(), msg, &sentMessages{})
	assert.Zero(t, rec.count(), "no channel before a listener exists")

	bus.AddEventListener("direct", rec.record)
	bus.HandleMessage(context.Background(), msg, &sentMessages{})

	require.Equal(t, 1, rec.count())
	assert.Equal(t, 7, decodeInt(t, rec.at(0), 0))
}

func TestEventChannel_SatelliteDoesNotRelay(t *testing.T) {
	coordLink := &sentMessages{}
	sat := eventbus.New(eventbus.RoleSatellite, logger.Nop{})
	t.Cleanup(sat.Close)
	require.NoError(t, sat.RendererInit("window1", coordLink))
	rec := &calls{}
	sat.AddEventListener("direct", rec.record)

	sat.HandleMessage(context.Background(), transport.Message{Channel: "direct"}, coordLink)

	assert.Equal(t, 1, rec.count())
	assert.Empty(t, coordLink.all())
}

func TestArgsDecodeOutOfRange(t *testing.T) {
	args, err := eventbus.EncodeArgs(1)
	require.NoError(t, err)

	var v int
	assert.Error(t, args.Decode(1, &v))
	assert.Error(t, args.Decode(-1, &v))
}

func TestEncodeArgs_PassesRawMessagesThrough(t *testing.T) {
	args, err := eventbus.EncodeArgs([]byte("x"), []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, `"eA=="`, string(args[0]))
	assert.Equal(t, `[1,2]`, string(args[1]))

	raw, err := eventbus.EncodeArgs(eventbus.Args{[]byte(`{"a":1}`)}[0])
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw[0]))
}
