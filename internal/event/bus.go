// Package event provides a minimal observer bus for publishing discrete
// state snapshots to subscribers, decoupled from any UI framework.
package event

import "sync"

// Bus fans out values of type T to all current subscribers. Publish never
// blocks: a subscriber whose channel buffer is full misses that event and
// catches up with the next one, which is acceptable because every published
// value is a full state snapshot rather than a delta.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[int]chan T)}
}

// Subscribe registers a new subscriber with the given channel buffer size
// (minimum 1) and returns the receive channel plus a cancel function.
// Cancel closes the channel and removes the subscription; it is safe to
// call more than once.
func (b *Bus[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers v to every subscriber that has buffer room.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Close terminates all subscriptions. Further Publish calls are no-ops and
// further Subscribe calls return a closed channel.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
