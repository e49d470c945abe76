package notify

import (
	"sync"

	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/domain"
)

const defaultSendBuffer = 32

// Hub fans events out to every connected client. Delivery is at-most-once and unordered
// across clients; a client whose buffer is full is dropped rather than waited for.
type Hub struct {
	sendBuffer int

	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

func NewHub() *Hub {
	return &Hub{
		sendBuffer: defaultSendBuffer,
		clients:    make(map[*Client]struct{}),
	}
}

// Publish implements app.Notifier. It never blocks on a client.
func (h *Hub) Publish(e domain.Event) {
	data, err := domain.EncodeEvent(e)
	if err != nil {
		log.Error().Err(err).Str("type", string(e.Kind())).Msg("encode event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Debug().Str("client", c.id).Msg("send buffer full, dropping client")
			h.removeLocked(c)
		}
	}
}

// Count reports the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client; later registrations are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	log.Debug().Str("client", c.id).Int("clients", len(h.clients)).Msg("client registered")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked closes the client's send channel exactly once.
func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	log.Debug().Str("client", c.id).Int("clients", len(h.clients)).Msg("client unregistered")
}
