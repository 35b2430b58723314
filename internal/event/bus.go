// Package event provides in-process pub/sub notifications between the
// session, workflow and server layers, built on watermill.
package event

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Type identifies the kind of event.
type Type string

const (
	SessionCreated        Type = "session.created"
	SessionUpdated        Type = "session.updated"
	SessionDeleted        Type = "session.deleted"
	MessagePushed         Type = "message.pushed"
	TitleGenerated        Type = "title.generated"
	TranscriptionFinished Type = "transcription.finished"
	TranscriptionFailed   Type = "transcription.failed"
	WorkflowFinished      Type = "workflow.finished"
	WorkflowFailed        Type = "workflow.failed"
)

// Event is one notification. Delivery is in-process and best-effort; nothing
// is persisted.
type Event struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// Subscriber receives events.
type Subscriber func(event Event)

type subscriberEntry struct {
	id uint64
	fn Subscriber
}

// Bus fans events out to subscribers. In-process subscribers are invoked
// directly so payload types survive without serialization; every event is
// also mirrored, JSON-encoded, onto the watermill gochannel for consumers
// attached through PubSub.
type Bus struct {
	mu sync.RWMutex

	pubsub      *gochannel.GoChannel
	subscribers map[Type][]subscriberEntry
	global      []subscriberEntry
	nextID      uint64
	closed      bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]subscriberEntry),
	}
}

// Subscribe registers fn for one event type and returns its unsubscribe
// function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[t]
		for i, entry := range subs {
			if entry.id == id {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// SubscribeAll registers fn for every event type.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, entry := range b.global {
			if entry.id == id {
				b.global = append(b.global[:i], b.global[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event asynchronously: each subscriber runs in its own
// goroutine so a slow consumer never blocks the publisher.
func (b *Bus) Publish(event Event) {
	for _, sub := range b.collect(event.Type) {
		go sub(event)
	}
	b.forward(event)
}

// PublishSync delivers the event in the calling goroutine, returning after
// every subscriber has run.
func (b *Bus) PublishSync(event Event) {
	for _, sub := range b.collect(event.Type) {
		sub(event)
	}
	b.forward(event)
}

// forward mirrors the event onto the watermill transport. Delivery there is
// best-effort like everywhere else on the bus; an unmarshalable payload is
// dropped from the mirror but still reaches the direct subscribers.
func (b *Bus) forward(event Event) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	_ = b.pubsub.Publish(Topic(event.Type), msg)
}

func (b *Bus) collect(t Type) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}

	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, entry := range b.subscribers[t] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Close drops all subscribers and shuts down the transport.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// Topic names the watermill topic carrying one event type.
func Topic(t Type) string {
	return "events." + string(t)
}

// PubSub exposes the underlying watermill channel for middleware or a future
// distributed backend. Events arrive JSON-encoded on the per-type topics
// named by Topic.
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}
