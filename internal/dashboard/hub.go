// Package dashboard implements the HTTP/WebSocket surface (C11): serving
// workspace status, per-agent detail, and a live event stream to any number
// of subscribers, plus a background watcher that feeds the gatherer (C8)
// new output as it appears.
package dashboard

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType distinguishes the payloads a client can subscribe to.
type MessageType string

const (
	MessageStatusUpdate MessageType = "status_update"
	MessageAgentUpdate  MessageType = "agent_update"
	MessageLiveEvent    MessageType = "live_event"
)

// Message is the envelope broadcast to WebSocket clients.
type Message struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Client is one connected WebSocket subscriber. Subscriptions narrow which
// message types it receives via "subscribe"/"unsubscribe" control messages;
// an empty set means "everything".
type Client struct {
	id            string
	conn          *websocket.Conn
	send          chan []byte
	hub           *Hub
	subscriptions map[MessageType]bool
	mu            sync.RWMutex
}

func newClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:            id,
		conn:          conn,
		send:          make(chan []byte, 256),
		hub:           hub,
		subscriptions: make(map[MessageType]bool),
	}
}

func (c *Client) isSubscribed(t MessageType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.subscriptions) == 0 {
		return true
	}
	return c.subscriptions[t]
}

func (c *Client) applySubscriptionCommand(cmd string, types []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, raw := range types {
		t := MessageType(raw)
		switch cmd {
		case "subscribe":
			c.subscriptions[t] = true
		case "unsubscribe":
			delete(c.subscriptions, t)
		}
	}
}

// ReadPump drains client messages (subscription commands) until the
// connection closes, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd struct {
			Command    string   `json:"command"`
			EventTypes []string `json:"event_types"`
		}
		if json.Unmarshal(data, &cmd) == nil {
			c.applySubscriptionCommand(cmd.Command, cmd.EventTypes)
		}
	}
}

// WritePump delivers queued broadcasts and pings every pingInterval, closing
// the connection if a write fails.
func (c *Client) WritePump(pingInterval time.Duration) {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans broadcasts out to every registered client, dropping any client
// whose send buffer is full rather than blocking the broadcaster.
type Hub struct {
	clients     map[*Client]bool
	broadcast   chan Message
	register    chan *Client
	unregister  chan *Client
	pingInterval time.Duration

	mu sync.RWMutex
}

// NewHub builds a Hub and starts its run loop in the background.
func NewHub(pingInterval time.Duration) *Hub {
	h := &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan Message, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		pingInterval: pingInterval,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				if !c.isSubscribed(msg.Type) {
					continue
				}
				select {
				case c.send <- data:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues msg for delivery to every subscribed client.
func (h *Hub) Broadcast(t MessageType, payload any) {
	h.broadcast <- Message{Type: t, Payload: payload, Timestamp: time.Now()}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
