package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStream struct {
	mu       sync.Mutex
	received []*Notification
	err      error
	block    chan struct{}
}

func (s *recordingStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.received = append(s.received, n)
	return nil
}

func (s *recordingStream) all() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.received...)
}

func (s *recordingStream) count() int {
	return len(s.all())
}

func TestManager_BroadcastSequence(t *testing.T) {
	m := NewManager()
	defer m.Close()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	a, b := &recordingStream{}, &recordingStream{}
	m.Subscribe(a)
	m.Subscribe(b)

	m.Broadcast(Notification{Type: TypeSongStarted, SongID: "A"})
	m.Broadcast(Notification{Type: TypeQueueExhausted})

	for _, s := range []*recordingStream{a, b} {
		require.Eventually(t, func() bool { return s.count() == 2 }, time.Second, time.Millisecond)
		got := s.all()
		assert.Equal(t, uint64(1), got[0].SequenceNo)
		assert.Equal(t, uint64(2), got[1].SequenceNo)
		assert.Equal(t, TypeSongStarted, got[0].Type)
		assert.Equal(t, fixed, got[0].At)
	}

	// Subscribers get their own copy
	a.all()[0].SongID = "mutated"
	assert.Equal(t, "A", string(b.all()[0].SongID))
}

func TestManager_PreservesOrder(t *testing.T) {
	m := NewManager()
	defer m.Close()
	s := &recordingStream{}
	m.Subscribe(s)

	for i := 0; i < queueSize/2; i++ {
		m.Broadcast(Notification{Type: TypeProgress})
	}

	require.Eventually(t, func() bool { return s.count() == queueSize/2 }, time.Second, time.Millisecond)
	for i, n := range s.all() {
		assert.Equal(t, uint64(i+1), n.SequenceNo)
	}
}

func TestManager_DropsFailingSubscriber(t *testing.T) {
	m := NewManager()
	defer m.Close()
	m.Subscribe(&recordingStream{err: errors.New("gone")})
	ok := &recordingStream{}
	m.Subscribe(ok)

	m.Broadcast(Notification{Type: TypeProgress})
	require.Eventually(t, func() bool { return m.SubscriberCount() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return ok.count() == 1 }, time.Second, time.Millisecond)
}

func TestManager_SlowSubscriberDropsOldest(t *testing.T) {
	m := NewManager()
	defer m.Close()
	slow := &recordingStream{block: make(chan struct{})}
	m.Subscribe(slow)

	start := time.Now()
	total := queueSize * 3
	for i := 0; i < total; i++ {
		m.Broadcast(Notification{Type: TypeProgress})
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, m.SubscriberCount())

	close(slow.block)
	require.Eventually(t, func() bool {
		got := slow.all()
		return len(got) > 0 && got[len(got)-1].SequenceNo == uint64(total)
	}, time.Second, time.Millisecond)
	assert.LessOrEqual(t, slow.count(), queueSize+1)
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	id := m.Subscribe(s)

	m.Broadcast(Notification{Type: TypeInitialState})
	require.Eventually(t, func() bool { return s.count() == 1 }, time.Second, time.Millisecond)

	m.Unsubscribe(id)
	m.Unsubscribe(id)
	assert.Equal(t, 0, m.SubscriberCount())

	m.Broadcast(Notification{Type: TypeProgress})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, s.count())

	m.Subscribe(&recordingStream{})
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
	assert.Equal(t, uint64(3), m.NextSequenceNo())
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "could_not_play", TypeCouldNotPlay.String())
	assert.Equal(t, "unknown", Type(99).String())
}
