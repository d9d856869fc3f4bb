package eventbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/philly/ipcbus/internal/platform/apperror"
	"github.com/philly/ipcbus/internal/platform/transport"
)

// Broadcast runs local listeners for t and propagates the event to every
// other process. In the coordinator it fans out to the satellites; in a
// satellite it relays through the coordinator. Local listeners run even
// when the remote leg fails.
func (b *Bus) Broadcast(ctx context.Context, t EventType, args ...any) error {
	if _, closed := b.state(); closed {
		return ErrClosed
	}
	encoded, err := EncodeArgs(args...)
	if err != nil {
		return apperror.From(ErrEncodeArgument, err)
	}
	b.opts.observer.Broadcast(b.role, t)

	switch b.role {
	case RoleCoordinator:
		b.dispatch(ctx, t, encoded)
		return b.fanOut(ctx, "", t, encoded)
	case RoleSatellite:
		return b.execute(ctx, t, false, encoded)
	default:
		return apperror.From(ErrWrongRole, fmt.Errorf("broadcast on %s bus", b.role))
	}
}

// execute runs local listeners. A satellite also relays events it raised
// itself; events the coordinator delivered are never relayed again, which
// is what keeps a delivery from looping back through the hub.
func (b *Bus) execute(ctx context.Context, t EventType, fromCoordinator bool, args Args) error {
	b.dispatch(ctx, t, args)

	if b.role == RoleSatellite && !fromCoordinator {
		return b.relay(ctx, t, args)
	}
	return nil
}

// fanOut delivers t to the satellite directory. origin is the raising
// satellite's tag, or empty for coordinator events.
func (b *Bus) fanOut(ctx context.Context, origin string, t EventType, args Args) error {
	b.mu.RLock()
	initialized, satellites := b.initialized, b.satellites
	b.mu.RUnlock()
	if !initialized {
		return apperror.From(ErrNotInitialized, errors.New("MainInit has not run"))
	}

	var errs []error
	delivered := 0
	for _, s := range satellites {
		if origin != "" && s.Tag == origin && b.opts.fanOut == ExcludeOrigin {
			continue
		}
		msg := transport.Message{
			Channel: ChannelExecuteOtherWindowsListener,
			Origin:  origin,
			Target:  s.Tag,
			Type:    string(t),
			Args:    args,
		}
		err := s.Handle.Send(ctx, msg)
		b.opts.observer.Delivered(s.Tag, err)
		if err != nil {
			b.log.Warn(ctx, "fan-out delivery failed", "event_type", t, "target", s.Tag, "error", err)
			errs = append(errs, fmt.Errorf("deliver %q to %s: %w", t, s.Tag, err))
			continue
		}
		delivered++
	}

	b.log.Debug(ctx, "fan-out complete", "event_type", t, "origin", origin, "delivered", delivered)
	return errors.Join(errs...)
}

// relay asks the coordinator to fan t out to the other satellites.
func (b *Bus) relay(ctx context.Context, t EventType, args Args) error {
	b.mu.RLock()
	initialized, tag, coordinator := b.initialized, b.tag, b.coordinator
	b.mu.RUnlock()
	if !initialized {
		return apperror.From(ErrNotInitialized, errors.New("RendererInit has not run"))
	}

	msg := transport.Message{
		Channel: ChannelExecuteOtherWindowsListener,
		Origin:  tag,
		Type:    string(t),
		Args:    args,
	}
	err := coordinator.Send(ctx, msg)
	b.opts.observer.Relayed(err)
	if err != nil {
		b.log.Warn(ctx, "relay to coordinator failed", "event_type", t, "error", err)
		return fmt.Errorf("relay %q: %w", t, err)
	}
	b.log.Debug(ctx, "relayed to coordinator", "event_type", t)
	return nil
}

// HandleMessage is the bus's transport entry point. replyTo is the link
// the message arrived on.
func (b *Bus) HandleMessage(ctx context.Context, msg transport.Message, replyTo transport.Sender) {
	initialized, closed := b.state()
	if closed {
		return
	}
	if !initialized {
		b.log.Warn(ctx, "dropping message received before init", "channel", msg.Channel, "role", b.role.String())
		return
	}

	switch b.role {
	case RoleCoordinator:
		b.handleAsCoordinator(ctx, msg, replyTo)
	case RoleSatellite:
		b.handleAsSatellite(ctx, msg)
	}
}

func (b *Bus) handleAsCoordinator(ctx context.Context, msg transport.Message, replyTo transport.Sender) {
	switch msg.Channel {
	case ChannelExecuteOtherWindowsListener:
		t := EventType(msg.Type)
		b.dispatch(ctx, t, msg.Args)
		// Per-satellite failures are already logged by fanOut.
		_ = b.fanOut(ctx, msg.Origin, t, msg.Args)
	case ChannelNetworkRequest:
		go b.serveRequest(ctx, msg, replyTo)
	case ChannelNetworkResponse:
		b.log.Warn(ctx, "coordinator received a response", "origin", msg.Origin, "correlation_id", msg.ID)
	default:
		b.handleEventChannel(ctx, msg)
	}
}

func (b *Bus) handleAsSatellite(ctx context.Context, msg transport.Message) {
	switch msg.Channel {
	case ChannelExecuteOtherWindowsListener:
		_ = b.execute(ctx, EventType(msg.Type), true, msg.Args)
	case ChannelNetworkResponse:
		b.pending.resolve(ctx, msg)
	case ChannelNetworkRequest:
		b.log.Warn(ctx, "satellite received a request", "correlation_id", msg.ID)
	default:
		b.handleEventChannel(ctx, msg)
	}
}

// handleEventChannel delivers a message addressed straight to an event
// type's channel. Only types with a registered listener have an open
// channel; anything else is dropped. Such deliveries are never relayed.
func (b *Bus) handleEventChannel(ctx context.Context, msg transport.Message) {
	t := EventType(msg.Channel)
	b.mu.RLock()
	_, open := b.channels[t]
	b.mu.RUnlock()
	if !open {
		b.log.Debug(ctx, "dropping message for unopened channel", "channel", msg.Channel)
		return
	}
	b.dispatch(ctx, t, msg.Args)
}
