package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/seaguard/go-spill-tracker/internal/models"
)

// Broadcaster fans spill lifecycle events out to stream subscribers
// (the SSE endpoint). Slow subscribers are skipped rather than blocking
// the simulation step that published the event.
type Broadcaster struct {
	subscribers map[uint64]chan models.SpillEvent
	nextID      atomic.Uint64
	mu          sync.RWMutex
}

func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.SpillEvent),
	}
}

func (b *Broadcaster) Subscribe() (uint64, <-chan models.SpillEvent) {
	id := b.nextID.Add(1)
	ch := make(chan models.SpillEvent, 64)

	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()

	return id, ch
}

func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) Publish(ev models.SpillEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			// Skip slow subscribers
		}
	}
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels, causing streams to exit gracefully.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
