package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubscriber struct {
	id        string
	profileID int64

	mu       sync.Mutex
	received [][]byte
	sendErr  error
	closed   bool
}

func newFakeSubscriber(id string, profileID int64) *fakeSubscriber {
	return &fakeSubscriber{id: id, profileID: profileID}
}

func (f *fakeSubscriber) ID() string       { return f.id }
func (f *fakeSubscriber) ProfileID() int64 { return f.profileID }

func (f *fakeSubscriber) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClientClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.received = append(f.received, data)
	return nil
}

func (f *fakeSubscriber) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSubscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func (f *fakeSubscriber) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	laptop := newFakeSubscriber("laptop", 1)
	phone := newFakeSubscriber("phone", 1)
	other := newFakeSubscriber("other", 2)

	hub.Register(laptop)
	hub.Register(phone)
	hub.Register(other)

	assert.Equal(t, 2, hub.ClientCount(1))
	assert.Equal(t, 1, hub.ClientCount(2))
	assert.Zero(t, hub.ClientCount(3))
	assert.Equal(t, 3, hub.TotalClientCount())

	assert.True(t, hub.Unregister(laptop))
	assert.False(t, hub.Unregister(laptop))
	assert.Equal(t, 1, hub.ClientCount(1))

	hub.Unregister(phone)
	hub.Unregister(other)
	assert.Zero(t, hub.TotalClientCount())
}

func TestHub_DeliverOnlyToOwningProfile(t *testing.T) {
	hub := NewHub()
	laptop := newFakeSubscriber("laptop", 1)
	phone := newFakeSubscriber("phone", 1)
	other := newFakeSubscriber("other", 2)
	hub.Register(laptop)
	hub.Register(phone)
	hub.Register(other)

	n := hub.Deliver(1, ProfileUpdated(map[string]interface{}{"id": 1}))

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, laptop.count())
	assert.Equal(t, 1, phone.count())
	assert.Zero(t, other.count())
	assert.Contains(t, string(laptop.received[0]), `"type":"profile.updated"`)
}

func TestHub_DropsSubscriberThatCannotKeepUp(t *testing.T) {
	hub := NewHub()
	healthy := newFakeSubscriber("healthy", 1)
	stuck := newFakeSubscriber("stuck", 1)
	stuck.sendErr = ErrSendBufferFull
	hub.Register(healthy)
	hub.Register(stuck)

	n := hub.Deliver(1, ProfileUpdated(map[string]interface{}{"id": 1}))

	assert.Equal(t, 1, n)
	assert.True(t, stuck.isClosed())
	assert.False(t, healthy.isClosed())
	assert.Equal(t, 1, hub.ClientCount(1))
}

func TestHub_DeliverWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	assert.Zero(t, hub.Deliver(999, ProfileCreated(map[string]interface{}{"id": 1})))
}

func TestHub_DeliverUnencodablePayload(t *testing.T) {
	hub := NewHub()
	sub := newFakeSubscriber("a", 1)
	hub.Register(sub)

	n := hub.Deliver(1, ProfileUpdated(make(chan int)))

	assert.Zero(t, n)
	assert.Zero(t, sub.count())
	assert.False(t, sub.isClosed())
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub()
	subs := []*fakeSubscriber{newFakeSubscriber("a", 1), newFakeSubscriber("b", 1), newFakeSubscriber("c", 2)}
	for _, s := range subs {
		hub.Register(s)
	}

	hub.CloseAll()

	assert.Zero(t, hub.TotalClientCount())
	for _, s := range subs {
		assert.True(t, s.isClosed(), s.id)
	}
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()
	const n = 50

	subs := make([]*fakeSubscriber, n)
	for i := range subs {
		subs[i] = newFakeSubscriber(fmt.Sprintf("client-%d", i), int64(i%5))
	}

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(1)
		go func(s *fakeSubscriber) {
			defer wg.Done()
			hub.Register(s)
		}(s)
	}
	wg.Wait()
	require.Equal(t, n, hub.TotalClientCount())

	for i, s := range subs {
		wg.Add(2)
		go func(profileID int64) {
			defer wg.Done()
			hub.Publish(profileID, ProfileUpdated(map[string]interface{}{"id": profileID}))
		}(int64(i % 5))
		go func(s *fakeSubscriber) {
			defer wg.Done()
			hub.Unregister(s)
		}(s)
	}
	wg.Wait()

	assert.Zero(t, hub.TotalClientCount())
}
