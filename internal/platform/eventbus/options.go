package eventbus

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// FanOutPolicy decides whether the satellite that raised an event gets it
// back from the coordinator.
type FanOutPolicy int

const (
	// ExcludeOrigin skips the originating satellite.
	ExcludeOrigin FanOutPolicy = iota
	// IncludeOrigin delivers to every satellite, the origin included. The
	// origin sees the event a second time, as a coordinator delivery.
	IncludeOrigin
)

func (p FanOutPolicy) String() string {
	switch p {
	case ExcludeOrigin:
		return "exclude-origin"
	case IncludeOrigin:
		return "include-origin"
	default:
		return fmt.Sprintf("FanOutPolicy(%d)", int(p))
	}
}

// ParseFanOutPolicy is the inverse of FanOutPolicy.String.
func ParseFanOutPolicy(s string) (FanOutPolicy, error) {
	switch s {
	case "", "exclude-origin":
		return ExcludeOrigin, nil
	case "include-origin":
		return IncludeOrigin, nil
	}
	return 0, fmt.Errorf("unknown fan-out policy %q", s)
}

// Correlation ids stay below 2^53 so they survive JSON number decoding.
const maxCorrelationID = 1 << 53

type options struct {
	fanOut         FanOutPolicy
	unique         bool
	requestTimeout time.Duration
	executor       Executor
	nextID         func() int64
	observer       Observer
}

func defaultOptions() options {
	return options{
		fanOut:         ExcludeOrigin,
		requestTimeout: 30 * time.Second,
		nextID:         func() int64 { return 1 + rand.Int64N(maxCorrelationID-1) },
		observer:       nopObserver{},
	}
}

// Option configures a Bus.
type Option func(*options)

// WithFanOutPolicy sets the coordinator's fan-out policy.
func WithFanOutPolicy(p FanOutPolicy) Option {
	return func(o *options) { o.fanOut = p }
}

// WithUniqueListeners makes registration idempotent: adding a callback that
// is already registered for the type does nothing.
func WithUniqueListeners() Option {
	return func(o *options) { o.unique = true }
}

// WithRequestTimeout bounds how long a satellite waits for a response.
// Zero disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithExecutor sets what the coordinator runs delegated requests with.
func WithExecutor(e Executor) Option {
	return func(o *options) { o.executor = e }
}

// WithIDSource replaces the correlation id generator.
func WithIDSource(next func() int64) Option {
	return func(o *options) { o.nextID = next }
}

// WithObserver reports bus activity to o.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}
