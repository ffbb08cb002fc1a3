package events

import (
	"context"
	"sync"
	"sync/atomic"
)

// Broker fans change events out to in-process subscribers (dashboard refresher, WatchChanges streams).
// Publish never blocks: a subscriber whose buffer is full misses the event and relies on the periodic refresh.
type Broker struct {
	mu      sync.RWMutex
	subs    map[int]chan ChangeEvent
	next    int
	buffer  int
	dropped atomic.Uint64
}

// NewBroker returns a Broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer < 1 {
		buffer = 1
	}
	return &Broker{subs: make(map[int]chan ChangeEvent), buffer: buffer}
}

// Subscribe registers a subscriber. Call the returned function to unsubscribe; it closes the channel.
func (b *Broker) Subscribe() (<-chan ChangeEvent, func()) {
	ch := make(chan ChangeEvent, b.buffer)
	b.mu.Lock()
	id := b.next
	b.next++
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

// Publish delivers ev to every subscriber without blocking.
func (b *Broker) Publish(_ context.Context, ev ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}
