package notify

import (
	"context"
	"sync"
)

// Broker is the in-process hub shared by contexts on the same device. Each
// context attaches its own LocalTransport; an event sent through one
// transport is delivered to every other attached handler. The sender's own
// handler is skipped so delivery can stay synchronous while the sender
// holds its session lock.
type Broker struct {
	mu      sync.Mutex
	nextID  int
	members map[int]Handler
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{members: make(map[int]Handler)}
}

// Attach creates a transport joined to the broker.
func (b *Broker) Attach() *LocalTransport {
	return &LocalTransport{broker: b, id: -1}
}

func (b *Broker) join(handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.members[b.nextID] = handler
	return b.nextID
}

func (b *Broker) leave(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.members, id)
}

func (b *Broker) publish(fromID int, event Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.members))
	for id, handler := range b.members {
		if id != fromID {
			handlers = append(handlers, handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// LocalTransport delivers events synchronously through a shared Broker.
type LocalTransport struct {
	broker *Broker
	mu     sync.Mutex
	id     int
}

// Start registers the handler with the broker.
func (t *LocalTransport) Start(ctx context.Context, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id < 0 {
		t.id = t.broker.join(handler)
	}
	return nil
}

// Send publishes the event to every other transport attached to the broker.
func (t *LocalTransport) Send(event Event) error {
	t.mu.Lock()
	fromID := t.id
	t.mu.Unlock()
	t.broker.publish(fromID, event)
	return nil
}

// Close detaches the transport from the broker.
func (t *LocalTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id >= 0 {
		t.broker.leave(t.id)
		t.id = -1
	}
	return nil
}
