// Package notification provides the notification manager for broadcasting events.
package notification

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Subscription is one subscriber's feed. C is closed by Unsubscribe or
// by Close on the manager.
type Subscription struct {
	ID string
	C  <-chan *Notification

	ch      chan *Notification
	dropped atomic.Uint64
}

// Dropped returns how many notifications were dropped because the
// subscriber fell behind.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*Subscription
	sequenceNo    uint64
	buffer        int
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*Subscription),
		buffer:        DefaultBuffer,
	}
}

// Subscribe adds a new subscription.
func (m *Manager) Subscribe() *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *Notification, m.buffer)
	sub := &Subscription{
		ID: uuid.New().String(),
		C:  ch,
		ch: ch,
	}
	m.subscriptions[sub.ID] = sub
	zlog.Debug().Msgf("subscribed: subscription_id=%s", sub.ID)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	delete(m.subscriptions, subscriptionID)
	close(sub.ch)
	zlog.Debug().Msgf("unsubscribed: subscription_id=%s dropped=%d", subscriptionID, sub.dropped.Load())
}

// Broadcast stamps the notification with the next sequence number and
// queues it for every subscriber. A subscriber whose queue is full
// misses it; the gap shows in the sequence numbers.
func (m *Manager) Broadcast(n *Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sequenceNo++
	n.SequenceNo = m.sequenceNo

	for _, sub := range m.subscriptions {
		m.deliverLocked(sub, n)
	}
}

// Send queues a notification for one subscriber. It carries the current
// sequence number without advancing it.
func (m *Manager) Send(subscriptionID string, n *Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	n.SequenceNo = m.sequenceNo
	m.deliverLocked(sub, n)
}

func (m *Manager) deliverLocked(sub *Subscription, n *Notification) {
	select {
	case sub.ch <- n:
	default:
		sub.dropped.Add(1)
		zlog.Warn().Msgf("subscriber is behind, dropping notification: subscription_id=%s sequence_no=%d", sub.ID, n.SequenceNo)
	}
}

// SequenceNo returns the last assigned sequence number.
func (m *Manager) SequenceNo() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close closes every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subscriptions {
		close(sub.ch)
		delete(m.subscriptions, id)
	}
}
