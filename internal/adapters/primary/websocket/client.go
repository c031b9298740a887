package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound events.
	Send chan domain.Event

	// User ID for this client.
	UserID uuid.UUID

	// subscriptions maps ward names to true. Guarded by mu because the
	// hub goroutine reads it while the read goroutine mutates it.
	subscriptions map[string]bool

	// closeOnce guards the Send channel close
	closeOnce sync.Once

	// mu protects the subscriptions map
	mu sync.RWMutex

	// logger for the client
	logger *slog.Logger
}

// NewClient creates a new websocket client bound to a hub
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, logger *slog.Logger) *Client {
	return &Client{
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan domain.Event, 256),
		UserID:        userID,
		subscriptions: make(map[string]bool),
		logger:        logger.With("component", "websocket_client", "user_id", userID),
	}
}

// CloseSend closes the Send channel exactly once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// AddSubscription records a ward subscription on the client
func (c *Client) AddSubscription(ward string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[ward] = true
}

// RemoveSubscription removes a ward subscription from the client
func (c *Client) RemoveSubscription(ward string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, ward)
}

// HasSubscription reports whether the client is subscribed to a ward
func (c *Client) HasSubscription(ward string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[ward]
}

// GetSubscriptions returns a copy of the client's ward subscriptions
func (c *Client) GetSubscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	wards := make([]string, 0, len(c.subscriptions))
	for ward := range c.subscriptions {
		wards = append(wards, ward)
	}
	return wards
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps events from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if !ok {
				// The hub closed the channel. Send close message.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write event", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed, closing connection", "error", err)
				return
			}
		}
	}
}

func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// --- Incoming Message Handling ---

// ClientMessage is the structure for messages sent *from* the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type SubscribePayload struct {
	Ward string `json:"ward"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to parse client message", "error", err)
		return
	}

	switch msg.Type {
	case "SUBSCRIBE_TO_WARD":
		c.handleSubscribe(msg.Payload)
	case "UNSUBSCRIBE_FROM_WARD":
		c.handleUnsubscribe(msg.Payload)
	case "PING":
		c.sendPong()
	default:
		c.logger.Warn("unknown client message type", "type", msg.Type)
	}
}

func (c *Client) handleSubscribe(payload json.RawMessage) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("invalid subscribe payload", "error", err)
		return
	}
	if p.Ward == "" {
		p.Ward = AllWardsRoom
	}
	c.Hub.subscribeClientToWard(c, p.Ward)
}

func (c *Client) handleUnsubscribe(payload json.RawMessage) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("invalid unsubscribe payload", "error", err)
		return
	}
	if p.Ward == "" {
		p.Ward = AllWardsRoom
	}
	c.Hub.unsubscribeClientFromWard(c, p.Ward)
}

func (c *Client) sendPong() {
	select {
	case c.Send <- domain.Event{Type: "PONG"}:
	default:
		// Buffer full, the pong is droppable
	}
}
