package mailbox

import (
	"context"
	"sync"
)

// Mailbox is a single-slot buffer. It is NOT a queue: it holds at most one
// pending item. Merge() combines a new item with the pending one and
// TakeContext() blocks until an item is available.
type Mailbox[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	item   *T
	closed bool
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	m := &Mailbox[T]{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Merge stores v, or combine(pending, v) when an item is already waiting.
// A nil combine replaces the pending item. It never blocks.
func (m *Mailbox[T]) Merge(v T, combine func(pending, next T) T) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.item != nil && combine != nil {
		v = combine(*m.item, v)
	}
	m.item = &v
	m.mu.Unlock()
	m.cond.Signal()
}

// TakeContext blocks until an item is available, then returns it and clears
// the slot. It returns false once the mailbox is closed and drained, or when
// ctx is done.
func (m *Mailbox[T]) TakeContext(ctx context.Context) (T, bool) {
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cond.Broadcast()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for m.item == nil && !m.closed && ctx.Err() == nil {
		m.cond.Wait()
	}

	var zero T
	if m.item == nil {
		return zero, false
	}

	v := *m.item
	m.item = nil
	return v, true
}

// HasJob reports whether an item is currently waiting.
func (m *Mailbox[T]) HasJob() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.item != nil
}

// Close wakes every waiter. A pending item can still be taken; later puts
// are dropped.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()
}
