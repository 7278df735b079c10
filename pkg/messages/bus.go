package messages

import (
	"sync"
	"sync/atomic"
)

// Publisher accepts outgoing messages
type Publisher interface {
	Publish(msg Message)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(msg Message)

func (f PublisherFunc) Publish(msg Message) { f(msg) }

// Discard drops every message
var Discard Publisher = PublisherFunc(func(Message) {})

// Bus fans messages out to subscribers.
//
// Delivery is at-most-once and best-effort: Publish never blocks, and a
// subscriber whose buffer is full misses the message. Messages reach each
// subscriber in publish order.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Message
	nextID  uint64
	dropped atomic.Uint64
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]chan Message)}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Message, buffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Publish implements Publisher
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of registered subscribers
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
