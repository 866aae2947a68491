package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a := m.Subscribe()
	b := m.Subscribe()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Notification{Type: TypeVolumeUpdated, Volume: 0.5})
	m.Broadcast(&Notification{Type: TypePlaybackStopped})

	for _, sub := range []*Subscription{a, b} {
		first := <-sub.C
		second := <-sub.C
		assert.Equal(t, uint64(1), first.SequenceNo)
		assert.Equal(t, TypeVolumeUpdated, first.Type)
		assert.Equal(t, uint64(2), second.SequenceNo)
		assert.Equal(t, TypePlaybackStopped, second.Type)
	}
	assert.Equal(t, uint64(2), m.SequenceNo())
}

func TestManager_Send(t *testing.T) {
	m := NewManager()
	a := m.Subscribe()
	b := m.Subscribe()
	m.Broadcast(&Notification{Type: TypeQueueUpdated})
	<-a.C
	<-b.C

	m.Send(a.ID, &Notification{Type: TypeState})
	m.Send("unknown", &Notification{Type: TypeState})

	got := <-a.C
	assert.Equal(t, TypeState, got.Type)
	assert.Equal(t, uint64(1), got.SequenceNo)
	assert.Empty(t, b.C)
	assert.Equal(t, uint64(1), m.SequenceNo())
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	sub := m.Subscribe()

	m.Unsubscribe(sub.ID)
	m.Unsubscribe(sub.ID)

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, m.SubscriberCount())

	// Broadcasting with no subscribers still advances the sequence.
	m.Broadcast(&Notification{Type: TypePaused})
	assert.Equal(t, uint64(1), m.SequenceNo())
}

func TestManager_SlowSubscriberDrops(t *testing.T) {
	m := NewManager()
	m.buffer = 2
	slow := m.Subscribe()

	for i := 0; i < 5; i++ {
		m.Broadcast(&Notification{Type: TypeVolumeUpdated})
	}

	assert.Equal(t, uint64(3), slow.Dropped())
	first := <-slow.C
	second := <-slow.C
	assert.Equal(t, uint64(1), first.SequenceNo)
	assert.Equal(t, uint64(2), second.SequenceNo)
}

func TestManager_Close(t *testing.T) {
	m := NewManager()
	a := m.Subscribe()
	b := m.Subscribe()

	m.Close()

	for _, sub := range []*Subscription{a, b} {
		_, ok := <-sub.C
		require.False(t, ok)
	}
	assert.Equal(t, 0, m.SubscriberCount())
}
