// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// queueSize bounds the notifications waiting for one subscriber.
const queueSize = 64

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Notification) error
}

// subscription delivers queued notifications to one stream in order.
type subscription struct {
	id     string
	stream Stream
	queue  chan Notification
	closed bool
}

// Manager manages notification subscriptions and broadcasting.
// Broadcast never blocks on a subscriber: each one has its own queue drained
// by a dedicated goroutine, and the oldest pending notification is dropped
// when that queue is full.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	now           func() time.Time
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		now:           time.Now,
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	sub := &subscription{
		id:     uuid.New().String(),
		stream: stream,
		queue:  make(chan Notification, queueSize),
	}

	m.mu.Lock()
	m.subscriptions[sub.id] = sub
	m.mu.Unlock()

	go m.deliver(sub)
	return sub.id
}

func (m *Manager) deliver(sub *subscription) {
	for n := range sub.queue {
		if err := sub.stream.Send(&n); err != nil {
			zlog.Debug().Err(err).Msgf("Dropping subscriber %s", sub.id)
			m.Unsubscribe(sub.id)
			return
		}
	}
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextSequenceNoLocked()
}

func (m *Manager) nextSequenceNoLocked() uint64 {
	m.sequenceNo++
	return m.sequenceNo
}

// Unsubscribe removes a subscription. Notifications already queued for it are discarded.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	delete(m.subscriptions, subscriptionID)
	m.closeLocked(sub)
}

// Broadcast stamps the notification and queues a copy for every subscriber.
// Subscribers receive notifications in sequence order.
func (m *Manager) Broadcast(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n.SequenceNo = m.nextSequenceNoLocked()
	if n.At.IsZero() {
		n.At = m.now()
	}

	for _, sub := range m.subscriptions {
		select {
		case sub.queue <- n:
			continue
		default:
		}

		// Full: make room by dropping the oldest pending notification
		select {
		case old := <-sub.queue:
			zlog.Debug().Msgf("Subscriber %s is behind, dropped notification %d", sub.id, old.SequenceNo)
		default:
		}
		select {
		case sub.queue <- n:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, sub := range m.subscriptions {
		m.closeLocked(sub)
		delete(m.subscriptions, id)
	}
}

func (m *Manager) closeLocked(sub *subscription) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.queue)
}
