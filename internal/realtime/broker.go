package realtime

import (
	"sync"

	"community-service/internal/models"
	"community-service/internal/observability"
)

// subscriptionBuffer bounds how many undelivered inserts a slow consumer may
// hold before further pushes to it are dropped.
const subscriptionBuffer = 32

// Broker is the in-process insert change feed for the messages relation.
// Subscribers receive every message published for their group until the
// subscription handle is closed.
type Broker struct {
	mu    sync.RWMutex
	rooms map[string]map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{rooms: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers interest in inserts for one group and returns an owned
// handle. The caller must Close the handle when done.
func (b *Broker) Subscribe(groupID string) *Subscription {
	sub := &Subscription{
		broker:  b,
		groupID: groupID,
		events:  make(chan models.MessageView, subscriptionBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rooms[groupID]; !ok {
		b.rooms[groupID] = make(map[*Subscription]struct{})
	}
	b.rooms[groupID][sub] = struct{}{}
	observability.IncSubscriptionsActive()
	return sub
}

// Publish delivers an inserted message to every live subscription of its
// group. Delivery to a subscriber whose buffer is full is dropped rather than
// blocking the publisher.
func (b *Broker) Publish(msg models.MessageView) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.rooms[msg.GroupID] {
		select {
		case sub.events <- msg:
			observability.IncChatEvent("push")
		default:
			observability.IncChatEvent("push_dropped")
		}
	}
}

// Subscription is the owned handle for one standing group subscription.
type Subscription struct {
	broker  *Broker
	groupID string
	events  chan models.MessageView
	once    sync.Once
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan models.MessageView {
	return s.events
}

// Close tears the subscription down. It is synchronous: once Close returns,
// no further message is delivered on Events, and the channel is closed.
// Closing twice is a no-op.
func (s *Subscription) Close() {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.rooms[s.groupID]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(b.rooms, s.groupID)
			}
		}
		close(s.events)
		observability.DecSubscriptionsActive()
	})
}
