package bus

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MessageBus decouples channels (producers of InboundMessage, consumers of
// OutboundMessage) from the agent runtime. Inbound/outbound are plain
// buffered channels; Broadcast/Subscribe fan out server-side events to
// whoever is listening (the gateway WS server, channel streaming forwarder).
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu       sync.RWMutex
	handlers map[string]EventHandler
}

// New creates a MessageBus with reasonably large buffers so a slow consumer
// doesn't block producers under normal load.
func New() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, 1024),
		outbound: make(chan OutboundMessage, 1024),
		handlers: make(map[string]EventHandler),
	}
}

// PublishInbound enqueues a message from a channel for the agent runtime.
// Drops (with no blocking) if the buffer is full — back-pressure belongs to
// the channel adapter, not the bus.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
	}
}

// ConsumeInbound blocks until a message arrives or ctx is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a message for delivery back to a channel.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
	}
}

// SubscribeOutbound blocks until an outbound message is ready or ctx is cancelled.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}

// Subscribe registers a handler under id, replacing any existing handler
// with the same id.
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = handler
}

// Unsubscribe removes the handler registered under id.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// Broadcast invokes every registered handler with event, synchronously.
// Handlers that need to do slow work should hand off to a goroutine.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(event)
	}
}

// DedupeCache remembers recently-seen keys for a bounded TTL and capacity,
// used to drop re-delivered webhook/poll updates keyed by (tenant,
// external_id). Not safe to share across goroutines without Seen's own
// locking, which it provides.
type DedupeCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxSize  int
	entries  map[string]*list.Element
	order    *list.List // front = most recently seen
}

type dedupeEntry struct {
	key  string
	seen time.Time
}

// NewDedupeCache creates a cache that forgets a key after ttl, or earlier if
// maxSize is exceeded (oldest evicted first).
func NewDedupeCache(ttl time.Duration, maxSize int) *DedupeCache {
	return &DedupeCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Seen reports whether key was already recorded within the TTL window, and
// records it (refreshing its position) if not expired-and-evicted.
func (d *DedupeCache) Seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if el, ok := d.entries[key]; ok {
		entry := el.Value.(*dedupeEntry)
		if now.Sub(entry.seen) < d.ttl {
			d.order.MoveToFront(el)
			entry.seen = now
			return true
		}
		d.order.Remove(el)
		delete(d.entries, key)
	}

	el := d.order.PushFront(&dedupeEntry{key: key, seen: now})
	d.entries[key] = el

	for d.order.Len() > d.maxSize {
		oldest := d.order.Back()
		if oldest == nil {
			break
		}
		d.order.Remove(oldest)
		delete(d.entries, oldest.Value.(*dedupeEntry).key)
	}
	return false
}
