package pubsub

import (
	"sync"

	"github.com/Billy-Davies-2/fightpick/internal/logger"
)

// Upstream is a publisher that broadcasts across instances (NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// Bus is what the rest of the service publishes to and listens on
type Bus interface {
	Upstream
	Close()
}

// PubSub fans events out to in-process subscribers
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	upstream    Upstream
	bufferSize  int
	closed      bool
}

// New creates a PubSub that only delivers locally
func New() *PubSub {
	return &PubSub{bufferSize: 10}
}

// NewWithUpstream creates a PubSub bridged to upstream. Publish goes to the
// upstream, which echoes the event back to every instance, this one included.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		upstream:   upstream,
		bufferSize: 10,
	}

	ch := upstream.Subscribe()
	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a subscriber. Events are dropped for a subscriber whose
// buffer is full.
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, ps.bufferSize)
	if ps.closed {
		close(ch)
		return ch
	}
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", len(ps.subscribers))
	return ch
}

// Unsubscribe removes and closes a subscriber; unknown channels are ignored
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event upstream when bridged, otherwise to local subscribers
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		logger.Debug("PubSub: Forwarding to upstream", "type", event.Type)
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers)
}

// Close closes every local subscriber. The upstream is owned by the caller.
func (ps *PubSub) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for _, sub := range ps.subscribers {
		close(sub)
	}
	ps.subscribers = nil
	ps.closed = true
}

func (ps *PubSub) publishLocal(event Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, ch := range ps.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("PubSub: Skipping slow subscriber", "type", event.Type)
		}
	}
}
