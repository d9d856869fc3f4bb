package eventbus

import (
	"context"
	"fmt"
	"slices"
	"unsafe"

	"github.com/philly/ipcbus/internal/platform/apperror"
)

// AddEventListener appends cb to the listeners for t. The first listener
// for a type also opens the type's channel so that messages addressed to
// it directly are delivered. Registering the same callback twice makes it
// run twice, unless the bus was built WithUniqueListeners. Keep the value
// passed here to remove it later: every evaluation of a method value or
// closure literal is a distinct listener.
func (b *Bus) AddEventListener(t EventType, cb Callback) {
	if cb == nil {
		b.log.Warn(context.Background(), "ignoring nil listener", "event_type", t)
		return
	}

	b.mu.Lock()
	if b.opts.unique && indexOf(b.listeners[t], cb) >= 0 {
		b.mu.Unlock()
		return
	}
	b.listeners[t] = append(b.listeners[t], cb)
	_, open := b.channels[t]
	if !open {
		b.channels[t] = struct{}{}
	}
	count := len(b.listeners[t])
	b.mu.Unlock()

	if !open {
		b.log.Debug(context.Background(), "event channel opened", "event_type", t, "role", b.role.String())
	}
	b.log.Debug(context.Background(), "listener added", "event_type", t, "listeners", count)
}

// RemoveEventListener removes the first registration of cb for t. It
// fails with ErrUnknownEventType if t never had a listener in this
// process; removing a callback that is not registered is a no-op. The
// type stays known even when its last listener goes. cb matches only the
// func value that was registered, or a copy of it.
func (b *Bus) RemoveEventListener(t EventType, cb Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, ok := b.listeners[t]
	if !ok {
		return apperror.From(ErrUnknownEventType, fmt.Errorf("event type %q", t))
	}
	i := indexOf(list, cb)
	if i < 0 {
		return nil
	}
	// Copy so dispatches holding the old slice are unaffected.
	b.listeners[t] = slices.Delete(slices.Clone(list), i, i+1)
	return nil
}

// ListenerCount is the number of registrations for t.
func (b *Bus) ListenerCount(t EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[t])
}

// HasEventType reports whether t was ever registered in this process.
func (b *Bus) HasEventType(t EventType) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.listeners[t]
	return ok
}

// dispatch invokes the current listeners for t in registration order. A
// panicking listener is logged and does not stop the others.
func (b *Bus) dispatch(ctx context.Context, t EventType, args Args) {
	b.mu.RLock()
	list := b.listeners[t]
	b.mu.RUnlock()

	for _, cb := range list {
		b.invoke(ctx, t, cb, args)
	}
}

func (b *Bus) invoke(ctx context.Context, t EventType, cb Callback, args Args) {
	defer func() {
		if r := recover(); r != nil {
			b.opts.observer.ListenerPanicked(t)
			b.log.Error(ctx, "event listener panicked", "event_type", t, "panic", fmt.Sprint(r))
		}
	}()
	cb(ctx, args)
}

func indexOf(list []Callback, cb Callback) int {
	want := funcID(cb)
	for i, c := range list {
		if funcID(c) == want {
			return i
		}
	}
	return -1
}

// funcID is the address of the func value's closure object. Copies of one
// func value share it; closures carrying different state, or two method
// values, never do. Registered callbacks stay reachable from the table, so
// an address cannot be reused while it is listed.
func funcID(cb Callback) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&cb))
}

func errRoleMismatch(op string, r Role) error {
	return fmt.Errorf("%s called on %s bus", op, r)
}
