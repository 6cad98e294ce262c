package bus

import (
	"fmt"
	"sync"
	"time"
)

// InboundDebouncer merges rapid-fire inbound messages from the same
// (channel, sender, chat) peer into a single turn, so a user who sends
// several short messages in quick succession doesn't trigger a separate
// agent run per message. Each Push resets that peer's timer; the peer's
// buffered messages are flushed as one merged message once the peer goes
// quiet for the configured window.
type InboundDebouncer struct {
	window time.Duration
	flush  func(InboundMessage)

	mu      sync.Mutex
	pending map[string]*pendingGroup
}

type pendingGroup struct {
	timer    *time.Timer
	messages []InboundMessage
}

// NewInboundDebouncer creates a debouncer that flushes each peer's buffered
// messages to flush after window has passed with no further Push for that
// peer.
func NewInboundDebouncer(window time.Duration, flush func(InboundMessage)) *InboundDebouncer {
	return &InboundDebouncer{
		window:  window,
		flush:   flush,
		pending: make(map[string]*pendingGroup),
	}
}

func debounceKey(msg InboundMessage) string {
	return fmt.Sprintf("%s|%s|%s", msg.Channel, msg.SenderID, msg.ChatID)
}

// Push buffers msg under its peer key, (re)starting that peer's flush timer.
func (d *InboundDebouncer) Push(msg InboundMessage) {
	key := debounceKey(msg)

	d.mu.Lock()
	defer d.mu.Unlock()

	group, ok := d.pending[key]
	if !ok {
		group = &pendingGroup{}
		d.pending[key] = group
	}
	group.messages = append(group.messages, msg)

	if group.timer != nil {
		group.timer.Stop()
	}
	group.timer = time.AfterFunc(d.window, func() {
		d.flushKey(key)
	})
}

func (d *InboundDebouncer) flushKey(key string) {
	d.mu.Lock()
	group, ok := d.pending[key]
	if !ok {
		d.mu.Unlock()
		return
	}
	messages := group.messages
	delete(d.pending, key)
	d.mu.Unlock()

	if len(messages) == 0 {
		return
	}
	d.flush(mergeMessages(messages))
}

// mergeMessages combines a peer's buffered messages into one, concatenating
// content with newlines and unioning media, while keeping the most recent
// message's metadata (it carries the freshest message_id/thread info).
func mergeMessages(messages []InboundMessage) InboundMessage {
	merged := messages[len(messages)-1]
	if len(messages) == 1 {
		return merged
	}

	var content string
	var media []string
	for i, m := range messages {
		if i > 0 {
			content += "\n"
		}
		content += m.Content
		media = append(media, m.Media...)
	}
	merged.Content = content
	merged.Media = media
	return merged
}

// Stop cancels every peer's pending flush timer without flushing it. Buffered
// messages for peers that hadn't yet flushed are dropped; callers shutting
// down the consumer loop are expected to not care about in-flight debounce
// windows.
func (d *InboundDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, group := range d.pending {
		if group.timer != nil {
			group.timer.Stop()
		}
		delete(d.pending, key)
	}
}
