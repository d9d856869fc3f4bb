package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/philly/ipcbus/internal/platform/transport"
)

// EventType names a class of event. Matching is exact string equality.
type EventType string

// Control channels shared by every process on the bus.
const (
	ChannelExecuteOtherWindowsListener = "ExecuteOtherWindowsListener"
	ChannelNetworkRequest              = "NetworkRequest"
	ChannelNetworkResponse             = "NetworkResponse"
)

// Role is fixed when the bus is constructed.
type Role int

const (
	RoleCoordinator Role = iota + 1
	RoleSatellite
)

func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleSatellite:
		return "satellite"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Args is the ordered argument list of an event. Each element is the JSON
// encoding of one positional argument.
type Args []json.RawMessage

// EncodeArgs encodes vals positionally. json.RawMessage values are taken
// as already encoded.
func EncodeArgs(vals ...any) (Args, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make(Args, len(vals))
	for i, v := range vals {
		if raw, ok := v.(json.RawMessage); ok {
			out[i] = raw
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

// Len is the number of arguments.
func (a Args) Len() int { return len(a) }

// Decode unmarshals argument i into v.
func (a Args) Decode(i int, v any) error {
	if i < 0 || i >= len(a) {
		return fmt.Errorf("argument %d out of range (have %d)", i, len(a))
	}
	return json.Unmarshal(a[i], v)
}

// Callback is a listener. It must not block for long: it runs on the
// delivering transport's goroutine.
type Callback func(ctx context.Context, args Args)

// Satellite is an entry of the coordinator's directory.
type Satellite struct {
	Tag    string
	Handle transport.Sender
}

// Executor runs a delegated request in the coordinator.
type Executor interface {
	Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

func (f ExecutorFunc) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return f(ctx, payload)
}

// Observer is told about bus activity; the coordinator feeds it to
// metrics. Implementations must not block.
type Observer interface {
	Broadcast(role Role, t EventType)
	Delivered(target string, err error)
	Relayed(err error)
	RequestServed(d time.Duration, err error)
	ListenerPanicked(t EventType)
}

type nopObserver struct{}

func (nopObserver) Broadcast(Role, EventType) {}
func (nopObserver) Delivered(string, error) {}
func (nopObserver) Relayed(error) {}
func (nopObserver) RequestServed(time.Duration, error) {}
func (nopObserver) ListenerPanicked(EventType) {}
