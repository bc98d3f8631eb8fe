package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSubscriber struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *testSubscriber) deliver(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
}

func (s *testSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func (s *testSubscriber) last(t *testing.T) Envelope {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.frames)

	var env Envelope
	require.NoError(t, json.Unmarshal(s.frames[len(s.frames)-1], &env))
	return env
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "image:abc", RoomForImage("abc"))
	assert.Equal(t, "user:u1", RoomForUser("u1"))
}

func TestHub_BroadcastToRoomMembers(t *testing.T) {
	hub := NewHub()
	inRoom := &testSubscriber{}
	outside := &testSubscriber{}

	hub.Join(inRoom, RoomForImage("img-1"))
	hub.Join(outside, RoomForImage("img-2"))

	require.NoError(t, hub.Broadcast(EventImageUpdate, map[string]string{"id": "img-1"}, RoomForImage("img-1")))

	assert.Equal(t, 1, inRoom.count())
	assert.Equal(t, 0, outside.count())

	env := inRoom.last(t)
	assert.Equal(t, EventImageUpdate, env.Type)
}

func TestHub_BroadcastDeduplicatesAcrossRooms(t *testing.T) {
	hub := NewHub()
	both := &testSubscriber{}
	userOnly := &testSubscriber{}

	// A client watching its own image sits in both target rooms.
	hub.Join(both, RoomForImage("img-1"))
	hub.Join(both, RoomForUser("user-1"))
	hub.Join(userOnly, RoomForUser("user-1"))

	require.NoError(t, hub.Broadcast(EventImageUpdate, nil, RoomForImage("img-1"), RoomForUser("user-1")))

	assert.Equal(t, 1, both.count())
	assert.Equal(t, 1, userOnly.count())
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := &testSubscriber{}

	hub.Join(sub, RoomForImage("img-1"))
	hub.Leave(sub, RoomForImage("img-1"))

	require.NoError(t, hub.Broadcast(EventImageUpdate, nil, RoomForImage("img-1")))
	assert.Equal(t, 0, sub.count())
	assert.Equal(t, 0, hub.RoomSize(RoomForImage("img-1")))
}

func TestHub_RemoveDetachesFromAllRooms(t *testing.T) {
	hub := NewHub()
	sub := &testSubscriber{}

	hub.Join(sub, RoomForImage("img-1"))
	hub.Join(sub, RoomForUser("user-1"))
	hub.Remove(sub)

	require.NoError(t, hub.Broadcast(EventImageUpdate, nil, RoomForImage("img-1"), RoomForUser("user-1")))
	assert.Equal(t, 0, sub.count())
}

func TestHub_BroadcastToEmptyRoom(t *testing.T) {
	hub := NewHub()
	assert.NoError(t, hub.Broadcast(EventImageUpdate, nil, RoomForImage("missing")))
}

func TestHub_ConcurrentMembershipAndBroadcast(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := &testSubscriber{}
			hub.Join(sub, RoomForImage("img-1"))
			_ = hub.Broadcast(EventImageUpdate, nil, RoomForImage("img-1"))
			hub.Remove(sub)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.RoomSize(RoomForImage("img-1")))
}
