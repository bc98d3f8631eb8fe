package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelpipe/pixelpipe/internal/auth"
)

const wsTestSecret = "ws-test-secret"

func dialTestServer(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()

	handler := NewHandler(hub, wsTestSecret)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	token, err := auth.NewToken(userID, wsTestSecret, time.Hour)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	server := httptest.NewServer(NewHandler(NewHub(), wsTestSecret))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_AutoJoinsUserRoom(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "user-1")

	require.Eventually(t, func() bool {
		return hub.RoomSize(RoomForUser("user-1")) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(EventImageUpdate, map[string]string{"id": "img-9"}, RoomForUser("user-1")))

	msg := readEnvelope(t, conn)
	assert.Equal(t, EventImageUpdate, msg["type"])
}

func TestHandler_SubscribeAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "user-1")

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    MsgSubscribeImage,
		"imageId": "img-1",
	}))

	msg := readEnvelope(t, conn)
	assert.Equal(t, MsgSubscribeImage+":ack", msg["type"])
	assert.Equal(t, true, msg["success"])

	require.Eventually(t, func() bool {
		return hub.RoomSize(RoomForImage("img-1")) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Broadcast(EventImageUpdate, map[string]string{"id": "img-1"}, RoomForImage("img-1")))
	msg = readEnvelope(t, conn)
	assert.Equal(t, EventImageUpdate, msg["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    MsgUnsubscribeImage,
		"imageId": "img-1",
	}))
	msg = readEnvelope(t, conn)
	assert.Equal(t, MsgUnsubscribeImage+":ack", msg["type"])

	require.Eventually(t, func() bool {
		return hub.RoomSize(RoomForImage("img-1")) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHandler_SubscribeWithoutImageID(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "user-1")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgSubscribeImage}))

	msg := readEnvelope(t, conn)
	assert.Equal(t, false, msg["success"])
}

func TestHandler_UnknownMessageType(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "user-1")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bogus"}))

	msg := readEnvelope(t, conn)
	assert.Equal(t, false, msg["success"])
}

func TestHandler_DisconnectLeavesAllRooms(t *testing.T) {
	hub := NewHub()
	conn := dialTestServer(t, hub, "user-1")

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":    MsgSubscribeImage,
		"imageId": "img-1",
	}))
	readEnvelope(t, conn)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.RoomSize(RoomForUser("user-1")) == 0 &&
			hub.RoomSize(RoomForImage("img-1")) == 0
	}, time.Second, 10*time.Millisecond)
}
