package events

import (
	"sync"
	"time"
)

// Kind names the display surface an update is for.
type Kind string

const (
	KindSession  Kind = "session"
	KindCash     Kind = "cash"
	KindHoldings Kind = "holdings"
	KindQuotes   Kind = "quotes"
	KindStatus   Kind = "status"
	KindBusy     Kind = "busy"
)

// Update is a display event for one surface.
type Update struct {
	Timestamp time.Time `json:"ts"`
	Kind      Kind      `json:"kind"`
	Data      any       `json:"data"`
}

// Broadcaster fans out updates to all subscribers via buffered channels.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[chan Update]struct{}
	buffer int
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[chan Update]struct{}),
		buffer: buffer,
	}
}

// Publish sends the update to all subscribers, dropping it for slow readers.
func (b *Broadcaster) Publish(u Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- u:
		default:
			// drop slow consumer
		}
	}
}

// Subscribe returns a channel that receives updates until Unsubscribe is called.
func (b *Broadcaster) Subscribe() chan Update {
	ch := make(chan Update, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *Broadcaster) Unsubscribe(ch chan Update) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
