package feed

import (
	"context"
	"log"
	"sync"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"trailhunt/internal/metrics"
)

// Event is the JSON structure pushed to feed clients for every new
// discovery.
type Event struct {
	Type       string `json:"t"`
	UserID     string `json:"uid"`
	TargetID   string `json:"tid"`
	TargetKind string `json:"k"`
	TargetName string `json:"n,omitempty"`
	Points     int    `json:"p"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub fans new discovery events out to connected spectators. Read-only:
// clients never send anything the engine acts on.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
	metrics.FeedClients.Set(float64(len(h.clients)))
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		close(c.Send)
		delete(h.clients, id)
	}
	metrics.FeedClients.Set(float64(len(h.clients)))
}

// Broadcast sends the event to every client. Non-blocking: drops for
// clients whose channel is full.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Feed] Marshal error: %v\n", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}
