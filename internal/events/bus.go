// Package events carries local-store change notifications to interested
// components (the sync trigger, the status view) without coupling them to
// the store.
package events

import (
	"sync"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// Change describes one write observed on the local store.
type Change struct {
	Collection string
	Op         store.Op
}

// Bus fans out Change notifications to subscribers. Publish never blocks:
// a subscriber whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Change
	nextID int
	buffer int
}

// NewBus creates a bus whose subscriber channels hold buffer events.
func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{subs: make(map[int]chan Change), buffer: buffer}
}

var (
	defaultBus  *Bus
	defaultOnce sync.Once
)

// Default returns the process-wide bus.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = NewBus(64)
	})
	return defaultBus
}

// Subscribe returns a channel of future changes and a function that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Change, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Change, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish delivers c to every subscriber that has room.
func (b *Bus) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
			utils.Debugf("events: dropped %s on %s for a slow subscriber", c.Op, c.Collection)
		}
	}
}

// Attach installs the store's change-notification hooks so every write is
// published on b. Like the hooks themselves it takes effect once per store;
// it reports whether this call did the installing.
func Attach(s *store.Store, b *Bus) bool {
	return s.AttachSyncHooks(func(collection string, op store.Op) {
		b.Publish(Change{Collection: collection, Op: op})
	})
}
