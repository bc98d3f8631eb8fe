package realtime

import (
	"encoding/json"
	"sync"
)

// RoomForImage names the room carrying updates for a single image.
func RoomForImage(imageID string) string {
	return "image:" + imageID
}

// RoomForUser names the room carrying updates for all of a user's images.
func RoomForUser(userID string) string {
	return "user:" + userID
}

// Envelope is the wire format for every outbound frame.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// subscriber receives marshalled frames. The websocket client
// implements it; tests substitute their own.
type subscriber interface {
	deliver(frame []byte)
}

// Hub tracks room membership and fans events out to subscribers. A
// subscriber in several target rooms still receives each event once.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[subscriber]struct{})}
}

func (h *Hub) Join(sub subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[subscriber]struct{})
		h.rooms[room] = members
	}
	members[sub] = struct{}{}
}

func (h *Hub) Leave(sub subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Remove detaches a subscriber from every room.
func (h *Hub) Remove(sub subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, members := range h.rooms {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Broadcast sends one event to the union of the given rooms. Each
// subscriber gets at most one copy regardless of how many target
// rooms it sits in.
func (h *Hub) Broadcast(eventType string, data interface{}, rooms ...string) error {
	frame, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		return err
	}

	h.mu.RLock()
	seen := make(map[subscriber]struct{})
	for _, room := range rooms {
		for sub := range h.rooms[room] {
			seen[sub] = struct{}{}
		}
	}
	h.mu.RUnlock()

	for sub := range seen {
		sub.deliver(frame)
	}
	return nil
}

// RoomSize returns the current member count of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
