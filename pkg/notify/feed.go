package notify

import (
	"sync"
)

// DefaultFeedCapacity is how many events a feed keeps by default.
const DefaultFeedCapacity = 200

// Feed is an append-only, bounded history of events. When full the oldest
// entry is dropped. Appending never blocks: subscribers that fall behind
// miss events instead of stalling the bus.
type Feed struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
	subs     map[*Subscription]struct{}
	closed   bool

	// onDrop is called for every event a subscriber missed.
	onDrop func()
}

// NewFeed creates a feed holding at most capacity events. A capacity <= 0
// uses DefaultFeedCapacity.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Append adds an event and fans it out to subscribers. Duplicates are
// appended as separate entries.
func (f *Feed) Append(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}

	if len(f.events) == f.capacity {
		copy(f.events, f.events[1:])
		f.events = f.events[:len(f.events)-1]
	}
	f.events = append(f.events, ev)

	for sub := range f.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.mu.Lock()
			sub.dropped++
			sub.mu.Unlock()
			if f.onDrop != nil {
				f.onDrop()
			}
		}
	}
}

// Events returns a copy of the history, oldest first.
func (f *Feed) Events() []Event {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

// Len returns the number of events held.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events)
}

// Subscribe returns a subscription receiving events appended from now on.
// buffer is the channel capacity; a subscriber that lets it fill up misses
// events.
func (f *Feed) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	sub := &Subscription{ch: make(chan Event, buffer), feed: f}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		close(sub.ch)
		sub.done = true
		return sub
	}
	f.subs[sub] = struct{}{}
	return sub
}

// Close closes every subscription. Later appends are ignored.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.closeLocked()
	}
	f.subs = nil
}

// Subscription is a live view of a feed.
type Subscription struct {
	ch   chan Event
	feed *Feed
	done bool // guarded by feed.mu

	mu      sync.Mutex
	dropped int
}

// C returns the event channel. It is closed when the subscription or the
// feed is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Dropped returns how many events this subscriber missed.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the subscription. It is idempotent.
func (s *Subscription) Close() {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()

	if s.done {
		return
	}
	delete(s.feed.subs, s)
	s.closeLocked()
}

// closeLocked must be called with feed.mu held.
func (s *Subscription) closeLocked() {
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
