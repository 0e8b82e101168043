package websocket

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/observability-core/internal/logging"
	"github.com/dreschagin/observability-core/internal/observability"
)

const hubComponent = "websocket-hub"

// Hub fans observability events out to connected WebSocket clients. It is
// attached to the manager's event bus as a listener; slow clients are
// disconnected rather than allowed to block the broadcast.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan observability.Event
	register   chan *Client
	unregister chan *Client

	mu           sync.RWMutex
	logger       *logging.Logger
	clientsGauge prometheus.Gauge
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan observability.Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// SetClientsGauge attaches a gauge tracking the connected client count.
// Call before Run.
func (h *Hub) SetClientsGauge(gauge prometheus.Gauge) {
	h.clientsGauge = gauge
}

func (h *Hub) trackClients(total int) {
	if h.clientsGauge != nil {
		h.clientsGauge.Set(float64(total))
	}
}

// Run processes registrations and broadcasts. Must run in its own goroutine.
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started", logging.Context{Component: hubComponent}, nil)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.trackClients(total)
			h.logger.Debug("Client registered",
				logging.Context{Component: hubComponent},
				map[string]interface{}{"totalClients": total})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.trackClients(total)
			h.logger.Debug("Client unregistered",
				logging.Context{Component: hubComponent},
				map[string]interface{}{"totalClients": total})

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- Message{Type: string(event.Type), Data: event}:
				default:
					// Client can't keep up; drop it.
					close(client.send)
					delete(h.clients, client)
					h.logger.Warn("Client channel full, disconnected",
						logging.Context{Component: hubComponent}, nil)
				}
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.trackClients(total)
		}
	}
}

// Register adds a new client.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// HandleEvent is the bus listener: events are queued for broadcast and
// dropped when the queue is full.
func (h *Hub) HandleEvent(event observability.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			logging.Context{Component: hubComponent},
			map[string]interface{}{"type": string(event.Type)})
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Message is the wire envelope sent to clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
