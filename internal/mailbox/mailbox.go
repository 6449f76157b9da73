// Package mailbox provides the buffered-channel outbox abstraction used
// to hand work between the I/O domain and the game domain without
// locking every shared structure. It is adapted from the actor-runtime
// mailbox in the teacher codebase (its Address/Mailbox pair backing each
// actor's single-consumer inbox): here there is no actor dispatch loop,
// just a typed outbox a producer pushes into and a single consumer drains
// — the shape the spec's action queue and per-connection send queue both
// need.
package mailbox

import "sync"

// Outbox is an unbounded, multi-producer, single-consumer queue of typed
// items. Unlike the teacher's Address (one buffered channel per logical
// peer, opened/closed independently), Outbox adds an explicit Drain that
// swaps the entire backlog out under one short lock — the pattern the
// spec's action queue requires ("swap, don't hold the lock during
// execution").
type Outbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
}

// New builds an empty outbox with capHint as the initial backing capacity.
func New[T any](capHint int) *Outbox[T] {
	return &Outbox[T]{items: make([]T, 0, capHint)}
}

// Push appends an item. It is a no-op once Close has been called, mirroring
// the spec's "once Closing, no new sends accepted" rule for connections.
func (o *Outbox[T]) Push(item T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.items = append(o.items, item)
}

// Drain swaps the entire backlog out under the lock and returns it,
// leaving the outbox empty. The caller processes the returned slice
// without holding any lock.
func (o *Outbox[T]) Drain() []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.items) == 0 {
		return nil
	}
	out := o.items
	o.items = make([]T, 0, cap(out))
	return out
}

// Len reports the current backlog size, for stats and tests.
func (o *Outbox[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

// Close marks the outbox closed; subsequent Push calls are dropped.
func (o *Outbox[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

// Closed reports whether Close has been called.
func (o *Outbox[T]) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
