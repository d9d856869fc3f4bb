package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/logger"
	"github.com/philly/ipcbus/internal/platform/transport"
)

// Future is the single-resolution result of SendRequest.
type Future struct {
	id   int64
	done chan struct{}
	once sync.Once

	result json.RawMessage
	err    error
}

func newFuture(id int64) *Future {
	return &Future{id: id, done: make(chan struct{})}
}

func rejected(err error) *Future {
	f := newFuture(0)
	f.settle(nil, err)
	return f
}

// ID is the correlation id; zero for requests run in the coordinator.
func (f *Future) ID() int64 { return f.id }

// Done is closed once the future is settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the future settles or ctx ends. Giving up on ctx
// does not withdraw the request.
func (f *Future) Await(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// settle resolves or rejects the future; only the first call counts.
func (f *Future) settle(result json.RawMessage, err error) bool {
	settled := false
	f.once.Do(func() {
		f.result, f.err = result, err
		close(f.done)
		settled = true
	})
	return settled
}

// correlator is the satellite's pending request table. Entries expire
// after the request timeout, rejecting their future.
type correlator struct {
	mu     sync.Mutex // serializes id allocation and response matching
	cache  *ttlcache.Cache[int64, *Future]
	nextID func() int64
	log    logger.Logger

	stopOnce sync.Once
}

func newCorrelator(timeout time.Duration, nextID func() int64, log logger.Logger) *correlator {
	cache := ttlcache.New[int64, *Future](
		ttlcache.WithTTL[int64, *Future](timeout),
		ttlcache.WithDisableTouchOnHit[int64, *Future](),
	)
	c := &correlator{cache: cache, nextID: nextID, log: log}

	cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[int64, *Future]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		cause := fmt.Errorf("no response for correlation id %d within %s", item.Key(), timeout)
		if item.Value().settle(nil, apperror.From(ErrRequestTimeout, cause)) {
			log.Warn(ctx, "request timed out", "correlation_id", item.Key(), "timeout", timeout.String())
		}
	})
	go cache.Start()
	return c
}

// register allocates an unused correlation id and stores its record.
func (c *correlator) register() *Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID()
	for c.cache.Has(id) {
		id = c.nextID()
	}
	f := newFuture(id)
	c.cache.Set(id, f, ttlcache.DefaultTTL)
	return f
}

// drop forgets a record without settling it.
func (c *correlator) drop(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Delete(id)
}

// resolve settles the record matching msg.ID. A response with no record
// is logged and discarded.
func (c *correlator) resolve(ctx context.Context, msg transport.Message) {
	c.mu.Lock()
	item := c.cache.Get(msg.ID)
	if item != nil {
		c.cache.Delete(msg.ID)
	}
	c.mu.Unlock()

	if item == nil {
		c.log.Warn(ctx, "dropping response with unmatched correlation id", "correlation_id", msg.ID)
		return
	}

	f := item.Value()
	if msg.Error != nil {
		f.settle(nil, apperror.From(ErrRemoteRequestFailed, msg.Error))
		return
	}
	f.settle(msg.Result, nil)
}

// pendingCount is the number of unanswered requests.
func (c *correlator) pendingCount() int {
	return c.cache.Len()
}

// close rejects every pending record and stops the expiry loop.
func (c *correlator) close() {
	c.mu.Lock()
	for _, item := range c.cache.Items() {
		item.Value().settle(nil, ErrClosed)
	}
	c.cache.DeleteAll()
	c.mu.Unlock()

	c.stopOnce.Do(c.cache.Stop)
}

// SendRequest delegates payload to the coordinator's executor. In the
// coordinator the request runs in-process. payload may be a
// json.RawMessage or anything json.Marshal accepts.
func (b *Bus) SendRequest(ctx context.Context, payload any) *Future {
	raw, err := encodePayload(payload)
	if err != nil {
		return rejected(apperror.From(ErrEncodeArgument, err))
	}
	initialized, closed := b.state()
	if closed {
		return rejected(ErrClosed)
	}

	switch b.role {
	case RoleCoordinator:
		if b.opts.executor == nil {
			return rejected(ErrNoExecutor)
		}
		f := newFuture(0)
		go func() {
			f.settle(b.runRequest(ctx, raw))
		}()
		return f

	case RoleSatellite:
		if !initialized {
			return rejected(apperror.From(ErrNotInitialized, errors.New("RendererInit has not run")))
		}
		b.mu.RLock()
		tag, coordinator := b.tag, b.coordinator
		b.mu.RUnlock()

		f := b.pending.register()
		msg := transport.Message{
			Channel: ChannelNetworkRequest,
			Origin:  tag,
			ID:      f.ID(),
			Payload: raw,
		}
		if err := coordinator.Send(ctx, msg); err != nil {
			b.pending.drop(f.ID())
			f.settle(nil, fmt.Errorf("send request: %w", err))
			return f
		}
		b.log.Debug(ctx, "request sent", "correlation_id", f.ID())
		return f

	default:
		return rejected(apperror.From(ErrWrongRole, fmt.Errorf("request on %s bus", b.role)))
	}
}

// Request is SendRequest followed by Await. When out is non-nil the result
// is decoded into it.
func (b *Bus) Request(ctx context.Context, payload any, out any) error {
	result, err := b.SendRequest(ctx, payload).Await(ctx)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("decode request result: %w", err)
	}
	return nil
}

// PendingRequests is the number of requests awaiting a response.
func (b *Bus) PendingRequests() int {
	if b.pending == nil {
		return 0
	}
	return b.pending.pendingCount()
}

// serveRequest runs a satellite's request in the coordinator and answers
// on the link it came from.
func (b *Bus) serveRequest(ctx context.Context, msg transport.Message, replyTo transport.Sender) {
	reply := transport.Message{
		Channel: ChannelNetworkResponse,
		Target:  msg.Origin,
		ID:      msg.ID,
	}

	result, err := b.runRequest(ctx, msg.Payload)
	if err != nil {
		b.log.Warn(ctx, "delegated request failed", "origin", msg.Origin, "correlation_id", msg.ID, "error", err)
		reply.Error = &transport.RemoteError{Code: string(apperror.CodeOf(err)), Message: err.Error()}
	} else {
		reply.Result = result
	}

	if err := replyTo.Send(ctx, reply); err != nil {
		b.log.Error(ctx, "failed to send response", "origin", msg.Origin, "correlation_id", msg.ID, "error", err)
	}
}

// runRequest runs payload on the executor and reports how it went.
func (b *Bus) runRequest(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	if b.opts.executor == nil {
		b.opts.observer.RequestServed(0, ErrNoExecutor)
		return nil, ErrNoExecutor
	}
	start := time.Now()
	result, err := b.opts.executor.Execute(ctx, payload)
	b.opts.observer.RequestServed(time.Since(start), err)
	return result, err
}

func encodePayload(payload any) (json.RawMessage, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(payload)
}
