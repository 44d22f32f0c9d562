// Package eventbus decouples instrumentation from the packages that emit
// events. Publishers fire typed structs; subscribers pick the types they
// care about. With no bus installed, publishing is a no-op.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type subscription struct {
	id int64
	fn func(context.Context, any)
}

// Bus dispatches events to handlers keyed by the concrete event type.
// Handlers run synchronously on the publishing goroutine, so they must
// not block; hand off to a channel for anything slow.
type Bus struct {
	mu     sync.RWMutex
	lastID int64
	subs   map[reflect.Type][]subscription
}

func New() *Bus { return &Bus{subs: make(map[reflect.Type][]subscription)} }

// subscribe registers fn under t and returns a function that removes
// exactly this registration, keyed by id rather than function identity;
// closures of the same shape share a code pointer.
func (b *Bus) subscribe(t reflect.Type, fn func(context.Context, any)) (unsubscribe func()) {
	b.mu.Lock()
	b.lastID++
	id := b.lastID
	b.subs[t] = append(b.subs[t], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		old := b.subs[t]
		kept := make([]subscription, 0, len(old))
		for _, s := range old {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, t)
		} else {
			b.subs[t] = kept
		}
	}
}

// emit dispatches e to every handler registered for its dynamic type.
// The handler list is snapshotted first so a handler may unsubscribe
// itself mid-dispatch.
func (b *Bus) emit(ctx context.Context, e any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	snapshot := append([]subscription(nil), b.subs[reflect.TypeOf(e)]...)
	b.mu.RUnlock()
	for _, s := range snapshot {
		s.fn(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use installs b as the process-wide bus. Passing nil disables event
// publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h for events of type T on the global bus.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e through the global bus.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.emit(ctx, e)
	}
}
