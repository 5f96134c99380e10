// Package eventbus fans controller change notifications out to subscribers.
package eventbus

import (
	"context"
	"sync"

	"pkt.systems/notechat/schema"
	"pkt.systems/pslog"
)

const defaultDepth = 256

// Bus delivers events to buffered subscriber channels. Publishing never
// blocks; a full subscriber misses the event.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan schema.Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan schema.Event]struct{}),
		log:   logger,
		depth: defaultDepth,
	}
}

// Subscribe registers a subscriber and returns its channel and a cancel
// function that closes it.
func (b *Bus) Subscribe() (<-chan schema.Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan schema.Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnEvent publishes an event to every subscriber.
func (b *Bus) OnEvent(event schema.Event) {
	if b == nil {
		return
	}
	// sends happen under the lock so a concurrent cancel cannot close a
	// channel mid-send; every send is non-blocking
	b.mu.Lock()
	defer b.mu.Unlock()
	dropped := 0
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "type", string(event.Type), "count", dropped)
	}
}
