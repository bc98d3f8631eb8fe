package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelpipe/pixelpipe/internal/auth"
	"github.com/pixelpipe/pixelpipe/internal/logger"
	"github.com/pixelpipe/pixelpipe/internal/metrics"
)

const (
	// EventImageUpdate is pushed whenever an image's processing state
	// changes.
	EventImageUpdate = "image:update"

	// MsgSubscribeImage and MsgUnsubscribeImage manage per-image room
	// membership from the client side.
	MsgSubscribeImage   = "subscribe:image"
	MsgUnsubscribeImage = "unsubscribe:image"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// clientMessage is an inbound control frame.
type clientMessage struct {
	Type    string `json:"type"`
	ImageID string `json:"imageId"`
}

// ack answers subscribe and unsubscribe requests.
type ack struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client is one websocket connection attached to the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	mu     sync.Mutex
	closed bool
}

var _ subscriber = (*Client)(nil)

func (c *Client) deliver(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		// Slow consumer; drop the frame rather than block the hub.
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Handler upgrades HTTP requests to websocket connections. The client
// authenticates with a JWT in the token query parameter or an
// Authorization header, and is auto-joined to its user room.
type Handler struct {
	hub       *Hub
	jwtSecret string
	upgrader  websocket.Upgrader
}

func NewHandler(hub *Hub, jwtSecret string) *Handler {
	return &Handler{
		hub:       hub,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.ExtractBearerToken(r.Header.Get("Authorization"))
	}
	userID, err := auth.ParseUserID(token, h.jwtSecret)
	if err != nil {
		http.Error(w, `{"error":{"code":"unauthorized","message":"Authentication required"}}`, http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
	}
	h.hub.Join(client, RoomForUser(userID))
	metrics.WebsocketConnections.Inc()
	log.Info("websocket connected", "user_id", userID)

	go client.writePump()
	go client.readPump(log)
}

func (c *Client) readPump(log *slog.Logger) {
	defer func() {
		c.hub.Remove(c)
		c.close()
		c.conn.Close()
		metrics.WebsocketConnections.Dec()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendAck("error", false, "Invalid message")
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg clientMessage) {
	switch msg.Type {
	case MsgSubscribeImage:
		if msg.ImageID == "" {
			c.sendAck(MsgSubscribeImage, false, "Missing imageId")
			return
		}
		c.hub.Join(c, RoomForImage(msg.ImageID))
		c.sendAck(MsgSubscribeImage, true, "Subscribed to image "+msg.ImageID)
	case MsgUnsubscribeImage:
		if msg.ImageID == "" {
			c.sendAck(MsgUnsubscribeImage, false, "Missing imageId")
			return
		}
		c.hub.Leave(c, RoomForImage(msg.ImageID))
		c.sendAck(MsgUnsubscribeImage, true, "Unsubscribed from image "+msg.ImageID)
	default:
		c.sendAck(msg.Type, false, "Unknown message type")
	}
}

func (c *Client) sendAck(msgType string, success bool, message string) {
	frame, err := json.Marshal(ack{Type: msgType + ":ack", Success: success, Message: message})
	if err != nil {
		return
	}
	c.deliver(frame)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
