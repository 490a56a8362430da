// Package pubsub fans values out to independent subscribers.
//
// Every subscriber owns a buffered queue drained by its own goroutine, so a
// slow handler only ever loses its own values and never blocks Publish.
package pubsub

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber queue length used when NewTopic gets a
// non-positive size.
const DefaultBuffer = 64

// Topic delivers published values to all current subscribers.
type Topic[T any] struct {
	buffer int
	latest bool

	mu     sync.Mutex
	subs   map[uint64]*subscription[T]
	next   uint64
	closed bool

	dropped atomic.Uint64
}

type subscription[T any] struct {
	id      uint64
	handler func(T)
	queue   chan T
	done    chan struct{}
	latest  bool

	lock      sync.Mutex
	cancelled bool
	once      sync.Once
}

// NewTopic creates a topic whose subscribers buffer up to buffer values.
func NewTopic[T any](buffer int) *Topic[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Topic[T]{
		buffer: buffer,
		subs:   make(map[uint64]*subscription[T]),
	}
}

// NewLatestTopic creates a topic for state snapshots. Each subscriber holds
// at most one pending value and a newer value replaces it, so a slow
// subscriber skips intermediate values but always receives the last one.
func NewLatestTopic[T any]() *Topic[T] {
	t := NewTopic[T](1)
	t.latest = true
	return t
}

// Subscribe registers handler and returns the function that removes it.
// The returned function is safe to call more than once; only the first call
// has an effect. Subscribing to a closed topic returns a no-op unsubscribe.
func (t *Topic[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return func() {}
	}

	t.next++
	sub := &subscription[T]{
		id:      t.next,
		handler: handler,
		queue:   make(chan T, t.buffer),
		done:    make(chan struct{}),
		latest:  t.latest,
	}
	t.subs[sub.id] = sub
	go sub.run()

	return func() {
		sub.once.Do(func() {
			t.mu.Lock()
			delete(t.subs, sub.id)
			t.mu.Unlock()
			sub.cancel()
		})
	}
}

// Publish hands v to every subscriber without blocking. Subscribers whose
// queue is full miss the value; the number of such misses is returned.
func (t *Topic[T]) Publish(v T) (dropped int) {
	t.mu.Lock()
	current := make([]*subscription[T], 0, len(t.subs))
	for _, sub := range t.subs {
		current = append(current, sub)
	}
	t.mu.Unlock()

	for _, sub := range current {
		if !sub.offer(v) {
			dropped++
		}
	}
	if dropped > 0 {
		t.dropped.Add(uint64(dropped))
	}
	return dropped
}

// Len returns the number of current subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (t *Topic[T]) Dropped() uint64 {
	return t.dropped.Load()
}

// Close removes every subscriber. Later Subscribe calls are no-ops.
func (t *Topic[T]) Close() {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[uint64]*subscription[T])
	t.closed = true
	t.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(sub.cancel)
	}
}

func (s *subscription[T]) offer(v T) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.cancelled {
		return true
	}
	select {
	case s.queue <- v:
		return true
	default:
	}
	if !s.latest {
		return false
	}
	// offer is serialised by lock, so emptying the slot guarantees room.
	select {
	case <-s.queue:
	default:
	}
	s.queue <- v
	return true
}

func (s *subscription[T]) cancel() {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.cancelled {
		s.cancelled = true
		close(s.done)
	}
}

func (s *subscription[T]) run() {
	for {
		select {
		case <-s.done:
			return
		case v := <-s.queue:
			// Values still queued when the subscription is cancelled are discarded.
			select {
			case <-s.done:
				return
			default:
			}
			s.deliver(v)
		}
	}
}

func (s *subscription[T]) deliver(v T) {
	defer func() {
		// A panicking handler must not take the delivery goroutine down with it.
		_ = recover()
	}()
	s.handler(v)
}
