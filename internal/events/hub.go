// Package events fans state changes out to connected browsers over
// WebSocket so every open tab of a household refreshes together.
package events

import (
	"encoding/json"
	"log/slog"
	"sync"

	"spesacasa/internal/log"
	"spesacasa/internal/state"
)

// Message is the payload pushed to clients.
type Message struct {
	Type       string `json:"type"`
	Collection string `json:"collection,omitempty"`
	Op         string `json:"op"`
	ID         string `json:"id,omitempty"`
}

// FromChange maps a store change to a message. Wholesale replacements
// become a "refresh" telling clients to refetch everything.
func FromChange(c state.Change) Message {
	if c.Collection == "" {
		return Message{Type: "refresh", Op: c.Op}
	}
	return Message{Type: c.Collection + "_" + c.Op, Collection: c.Collection, Op: c.Op, ID: c.ID}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log.WithComponent(logger, log.ComponentEvents),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast never blocks: clients with a full buffer miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("Failed to marshal broadcast", log.FieldError, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("Client buffer full, dropping message", "type", msg.Type)
		}
	}
}

// OnChange adapts the hub to state.WithChangeListener.
func (h *Hub) OnChange(c state.Change) { h.Broadcast(FromChange(c)) }

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
