package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/civicgrid/civic-issues-backend/internal/core/domain"
	"github.com/civicgrid/civic-issues-backend/internal/core/ports"
)

// AllWardsRoom receives every event regardless of ward.
const AllWardsRoom = "*"

// Hub maintains the set of active Clients and broadcasts events to them.
// Rooms are keyed by ward name; clients subscribe to the wards they care
// about. Events for an issue with no ward only reach the catch-all room.
type Hub struct {
	// clients maps user IDs to their active connections
	// A single user can have multiple connections (multiple tabs/devices)
	clients map[uuid.UUID]map[*Client]bool

	// rooms maps ward names to subscribed clients
	rooms map[string]map[*Client]bool

	// broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients and rooms maps. Subscribe and unsubscribe
	// run on each client's read goroutine, not the hub goroutine.
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for delivery. A full channel drops the event
// rather than blocking the caller.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"issue_id", event.IssueID,
			"ward", event.Ward,
		)
		return nil
	}
}

// Run starts the hub's event loop. This MUST be run as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Get subscriptions before removing from maps
	subscriptions := client.GetSubscriptions()

	// 1. Remove from the global user map
	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	// 2. Remove from all subscribed rooms
	for _, ward := range subscriptions {
		if room, ok := h.rooms[ward]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, ward)
			}
		}
	}

	// 3. Safely close the send channel
	client.CloseSend()

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
	)
}

// broadcastEvent fans an event out to the catch-all room plus the ward
// room when the event carries a ward. Clients in both rooms get it once.
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	recipients := make(map[*Client]bool)
	for client := range h.rooms[AllWardsRoom] {
		recipients[client] = true
	}
	if event.Ward != "" {
		for client := range h.rooms[event.Ward] {
			recipients[client] = true
		}
	}
	h.mu.RUnlock()

	if len(recipients) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ward", event.Ward,
		"client_count", len(recipients),
	)

	for client := range recipients {
		select {
		case client.Send <- event:
			// Successfully queued
		default:
			// Client's send buffer is full, unregister them
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
			)
			h.unregisterClient(client)
		}
	}
}

// subscribeClientToWard adds a client to a ward's room
func (h *Hub) subscribeClientToWard(client *Client, ward string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[ward] == nil {
		h.rooms[ward] = make(map[*Client]bool)
	}
	h.rooms[ward][client] = true
	client.AddSubscription(ward)

	h.logger.Debug("client subscribed to ward",
		"user_id", client.UserID,
		"ward", ward,
	)
}

// unsubscribeClientFromWard removes a client from a ward's room
func (h *Hub) unsubscribeClientFromWard(client *Client, ward string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[ward]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, ward)
		}
	}
	client.RemoveSubscription(ward)

	h.logger.Debug("client unsubscribed from ward",
		"user_id", client.UserID,
		"ward", ward,
	)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetRoomCount returns the number of active rooms
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetClientsInRoom returns the number of clients subscribed to a ward
func (h *Hub) GetClientsInRoom(ward string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[ward]; ok {
		return len(room)
	}
	return 0
}
