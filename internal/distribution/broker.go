package distribution

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is the per-subscriber queue depth. A subscriber that
// falls more than this many events behind starts losing the newest events
// on its topics until it drains.
const subscriberBuffer = 16

// DropObserver is told about events dropped for a slow subscriber. Drops are
// never surfaced to the publisher.
type DropObserver func(topic Topic)

// Broker is an in-process publish/subscribe registry keyed by topic. One
// instance is shared by the ingestion gateway and all live sessions; it is
// always passed explicitly, never held as package state.
type Broker struct {
	logger *log.Logger
	onDrop DropObserver

	mu   sync.Mutex
	subs map[Topic]map[string]*Subscription
}

// Subscription is one subscriber's handle on a topic. Events arrive on C.
// The channel is closed when the subscription is cancelled.
type Subscription struct {
	id    string
	topic Topic
	ch    chan Event

	closeOnce sync.Once
}

// C returns the delivery channel.
func (s *Subscription) C() <-chan Event { return s.ch }

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic { return s.topic }

// Option configures a broker.
type Option func(*Broker)

// WithDropObserver registers a callback for dropped deliveries.
func WithDropObserver(fn DropObserver) Option {
	return func(b *Broker) { b.onDrop = fn }
}

// NewBroker constructs an empty broker.
func NewBroker(logger *log.Logger, opts ...Option) *Broker {
	if logger == nil {
		logger = log.Default()
	}
	b := &Broker{
		logger: logger,
		subs:   make(map[Topic]map[string]*Subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber on a topic. The subscriber receives
// every event published after this call returns; there is no replay.
func (b *Broker) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		id:    uuid.NewString(),
		topic: topic,
		ch:    make(chan Event, subscriberBuffer),
	}
	b.mu.Lock()
	byID := b.subs[topic]
	if byID == nil {
		byID = make(map[string]*Subscription)
		b.subs[topic] = byID
	}
	byID[sub.id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Calling it
// again on the same handle is a no-op.
func (b *Broker) Unsubscribe(sub *Subscription) {
	if b == nil || sub == nil {
		return
	}
	b.mu.Lock()
	if byID, ok := b.subs[sub.topic]; ok {
		delete(byID, sub.id)
		if len(byID) == 0 {
			delete(b.subs, sub.topic)
		}
	}
	// Close under the registry lock so a concurrent Publish can never send
	// on a closed channel.
	sub.closeOnce.Do(func() { close(sub.ch) })
	b.mu.Unlock()
}

// Publish delivers an event to every current subscriber of the topic.
// Delivery is best-effort: when a subscriber's queue is full the event is
// dropped for that subscriber (drop-newest) so that a slow consumer can
// never stall ingestion. Sends are non-blocking, so holding the registry
// lock keeps publish latency bounded regardless of subscriber speed.
func (b *Broker) Publish(topic Topic, event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- event:
		default:
			b.logger.Printf("distribution: subscriber %s behind on %s/%s, event dropped", sub.id, topic.AUVID, topic.Kind)
			if b.onDrop != nil {
				b.onDrop(topic)
			}
		}
	}
}

// SubscriberCount reports the current number of subscribers on a topic.
func (b *Broker) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
