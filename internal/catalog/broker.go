package catalog

import (
	"sync"

	"github.com/google/uuid"
)

// Message announces that a collection is stale.
type Message struct {
	Collection string
}

// Broker fans invalidation messages out to subscribers. Delivery is
// synchronous: Publish returns after every subscriber ran.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[string]func(Message)
}

// NewBroker creates a broker without subscriptions.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[string]func(Message))}
}

// Subscribe registers fn for collection and returns a function that removes
// the subscription.
func (b *Broker) Subscribe(collection string, fn func(Message)) func() {
	id := uuid.NewString()

	b.mu.Lock()
	if b.subs[collection] == nil {
		b.subs[collection] = make(map[string]func(Message))
	}
	b.subs[collection][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[collection], id)
		if len(b.subs[collection]) == 0 {
			delete(b.subs, collection)
		}
	}
}

// Publish delivers msg to the subscribers of msg.Collection.
func (b *Broker) Publish(msg Message) {
	b.mu.RLock()
	handlers := make([]func(Message), 0, len(b.subs[msg.Collection]))
	for _, fn := range b.subs[msg.Collection] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(msg)
	}
}

// Subscribers returns how many subscriptions collection has.
func (b *Broker) Subscribers(collection string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[collection])
}
