// Package memory is an in-process transport: each Pipe is a pair of buffered,
// order-preserving queues. Messages are deep-copied on Send so the two ends
// never share state.
//
// It is meant for tests. Handlers run inline on the receiving end's Serve
// goroutine and Send blocks while the peer's queue is full, so listeners
// that keep re-broadcasting across a pipe under load can stall both pumps.
package memory

import (
	"context"
	"sync"

	"github.com/philly/ipcbus/internal/platform/transport"
)

// DefaultBuffer is the per-direction queue depth used by Pipe.
const DefaultBuffer = 64

// End is one side of a pipe.
type End struct {
	tag   string
	stamp bool
	inbox chan transport.Message
	peer  *End

	done chan struct{}
	once sync.Once
}

// Pipe links the coordinator with the satellite tagged tag. Messages
// arriving at the coordinator end have Origin set to tag.
func Pipe(tag string) (coordinator, satellite *End) {
	return PipeBuffered(tag, DefaultBuffer)
}

// PipeBuffered is Pipe with an explicit queue depth.
func PipeBuffered(tag string, buffer int) (coordinator, satellite *End) {
	coordinator = &End{tag: tag, stamp: true, inbox: make(chan transport.Message, buffer), done: make(chan struct{})}
	satellite = &End{tag: tag, inbox: make(chan transport.Message, buffer), done: make(chan struct{})}
	coordinator.peer = satellite
	satellite.peer = coordinator
	return coordinator, satellite
}

// Tag is the satellite tag of the pipe.
func (e *End) Tag() string { return e.tag }

// Send enqueues a copy of msg for the other end. It blocks only while the
// other end's queue is full.
func (e *End) Send(ctx context.Context, msg transport.Message) error {
	select {
	case <-e.done:
		return transport.ErrClosed
	case <-e.peer.done:
		return transport.ErrClosed
	default:
	}

	select {
	case e.peer.inbox <- msg.Clone():
		return nil
	case <-e.peer.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serve hands inbound messages to h one at a time until ctx ends or the end
// is closed. It returns nil after Close.
func (e *End) Serve(ctx context.Context, h transport.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case msg := <-e.inbox:
			if e.stamp {
				msg.Origin = e.tag
			}
			h.HandleMessage(ctx, msg, e)
		}
	}
}

// Close stops this end. Sends towards it fail with transport.ErrClosed.
func (e *End) Close() {
	e.once.Do(func() { close(e.done) })
}

var _ transport.Sender = (*End)(nil)
