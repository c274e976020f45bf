package events

import (
	"sync"
)

// Observable provides pub/sub behavior with type-safe callbacks.
// T is the type of the value passed to subscriber functions.
type Observable[T any] struct {
	mu          sync.RWMutex
	subscribers map[uint64]func(T)
	nextID      uint64
	replayLast  bool
	last        *T
	published   bool
}

// NewObservable creates a new Observable instance.
// replayLast: if true, the Observable remembers the last Publish value
// and calls new subscribers immediately with it if Publish has been
// called at least once.
func NewObservable[T any](replayLast bool) *Observable[T] {
	return &Observable[T]{
		subscribers: make(map[uint64]func(T)),
		replayLast:  replayLast,
	}
}

// Subscribe registers a function to be called when Publish is invoked.
// Returns a cancel function that removes the subscription.
// If replayLast is enabled and a value has already been published, the
// function is called immediately with that value.
func (o *Observable[T]) Subscribe(fn func(T)) func() {
	if fn == nil {
		panic("subscriber cannot be nil")
	}

	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subscribers[id] = fn
	var replay *T
	if o.replayLast && o.published && o.last != nil {
		replay = new(T)
		*replay = *o.last
	}
	o.mu.Unlock()

	// Replay outside the lock to avoid deadlock with Publish.
	if replay != nil {
		fn(*replay)
	}

	return func() {
		o.mu.Lock()
		delete(o.subscribers, id)
		o.mu.Unlock()
	}
}

// Publish calls all registered subscriber functions with the value.
// This operation is thread-safe.
func (o *Observable[T]) Publish(value T) {
	o.mu.Lock()
	if o.replayLast {
		if o.last == nil {
			o.last = new(T)
		}
		*o.last = value
		o.published = true
	}

	fns := make([]func(T), 0, len(o.subscribers))
	for _, fn := range o.subscribers {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	// Call subscribers outside the lock so they may resubscribe or cancel.
	for _, fn := range fns {
		fn(value)
	}
}

// SubscriberCount returns the current number of subscriptions.
// This is useful for testing and debugging.
func (o *Observable[T]) SubscriberCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subscribers)
}
