package event

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/exp/maps"
)

// subscriberBuffer is the number of events a subscriber can lag behind before events are dropped
// for it.
const subscriberBuffer = 16

func NewEventBroker(logger *slog.Logger) *Broker {
	return &Broker{
		logger:      logger,
		subscribers: make(map[string]chan Event),
	}
}

// Broker fans events out to in-process subscribers, typically SSE streams.
type Broker struct {
	logger      *slog.Logger
	subscribers map[string]chan Event
	lock        sync.Mutex
}

func (e *Broker) Subscribe(id string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if _, ok := e.subscribers[id]; ok {
		return
	}
	e.subscribers[id] = make(chan Event, subscriberBuffer)
}

// Unsubscribe removes the subscriber and closes its channel. It's safe to call more than once.
func (e *Broker) Unsubscribe(id string) {
	e.lock.Lock()
	defer e.lock.Unlock()
	channel, ok := e.subscribers[id]
	if !ok {
		return
	}
	close(channel)
	delete(e.subscribers, id)
}

func (e *Broker) Subscribers() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	return maps.Keys(e.subscribers)
}

// Send delivers event to a single subscriber. It returns false if there's no such subscriber or if
// the subscriber's buffer is full.
func (e *Broker) Send(id string, event Event) bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	channel, ok := e.subscribers[id]
	if !ok {
		return false
	}
	select {
	case channel <- event:
		return true
	default:
		return false
	}
}

// Notify delivers event to every subscriber without blocking.
func (e *Broker) Notify(ctx context.Context, event Event) {
	for _, id := range e.Subscribers() {
		if !e.Send(id, event) {
			e.logger.WarnContext(ctx, "Dropped event for subscriber", "subscriber", id, "type", event.Type)
		}
	}
}

// Receive blocks until an event for the subscriber arrives, the subscriber is removed or ctx is done.
func (e *Broker) Receive(ctx context.Context, id string) (Event, bool) {
	e.lock.Lock()
	channel, ok := e.subscribers[id]
	e.lock.Unlock()
	if !ok {
		return Event{}, false
	}

	select {
	case event, ok := <-channel:
		return event, ok
	case <-ctx.Done():
		return Event{}, false
	}
}
