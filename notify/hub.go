// Package notify fans storefront events out to websocket subscribers.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storefront/obs"
)

const (
	// ClientBufferSize is the send buffer size per client.
	ClientBufferSize = 16
	broadcastBuffer  = 256
)

// Event types published by the service.
const (
	OrderPlaced     = "order_placed"
	CheckoutFailed  = "checkout_failed"
	CatalogChanged  = "catalog_changed"
	WalletConnected = "wallet_connected"
	WalletClosed    = "wallet_disconnected"
)

type Event struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	OrderID string    `json:"order_id,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher receives service outcomes. Implementations must not block.
type Publisher interface {
	Publish(ev Event)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}

// Client is one subscriber. Conn may be nil for in-process subscribers.
type Client struct {
	Conn *websocket.Conn
	Send chan []byte
	Done chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, ClientBufferSize),
		Done: make(chan struct{}),
	}
}

// Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Done)
	close(c.Send)
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

// Hub owns the client set. All membership changes go through Run.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

var _ Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop; it returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					// slow subscriber, drop
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
			}
			h.clients = make(map[*Client]struct{})
			h.mu.Unlock()
			return
		}
	}
}

// Register adds c. After Stop it closes c instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish never blocks; when the broadcast buffer is full the event is dropped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		obs.Logger.Error("notify_marshal_failed", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		obs.Logger.Warn("notify_dropped", "type", ev.Type)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
