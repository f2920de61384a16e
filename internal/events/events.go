// Package events provides the in-process publish/subscribe hub used to announce synchronization results.
//
// Publishing is synchronous: Publish returns after every handler subscribed to the topic has run,
// in subscription order. A panicking handler is logged and does not stop delivery to the rest.
package events

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/librix/internal/shared"
)

// Topic names a channel of events.
type Topic string

const (
	// TopicReleasesSynchronized is published after a catalog cycle committed all of its writes.
	TopicReleasesSynchronized Topic = "synchronizedReleases"
	// TopicFavoritesSynchronized is published after the favorites record was saved.
	TopicFavoritesSynchronized Topic = "synchronizedFavorites"
	// TopicShowMessage carries a [Message] meant for the user.
	TopicShowMessage Topic = "showMessage"
)

// Message is a user-facing notification.
type Message struct {
	Header string `json:"header"`
	Body   string `json:"message"`
}

// Event is delivered to handlers.
type Event struct {
	Topic     Topic
	Timestamp time.Time
	Data      any
}

// Handler receives published events.
type Handler func(Event)

// Notifier publishes events. [Bus] implements it; tests substitute a recorder.
type Notifier interface {
	Publish(topic Topic, data any)
}

type subscription struct {
	id      string
	handler Handler
}

// Bus is a synchronous, topic-keyed event hub safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic][]subscription
	logger *log.Logger
}

var _ Notifier = (*Bus)(nil)

// NewBus creates an empty bus. A nil logger discards handler failures.
func NewBus(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Bus{subs: make(map[Topic][]subscription), logger: logger}
}

// Subscribe registers h for topic and returns a function that removes it.
//
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	id := shared.GenerateID()

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			b.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
}

// Publish delivers data to every handler of topic.
func (b *Bus) Publish(topic Topic, data any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[topic]))
	copy(subs, b.subs[topic])
	b.mu.RUnlock()

	event := Event{Topic: topic, Timestamp: time.Now(), Data: data}
	for _, s := range subs {
		b.deliver(s, event)
	}

	b.logger.Debug("event published", "topic", topic, "subscribers", len(subs))
}

func (b *Bus) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "topic", e.Topic, "subscription", s.id, "panic", r)
		}
	}()
	s.handler(e)
}

// SubscriberCount returns the number of handlers registered for topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
