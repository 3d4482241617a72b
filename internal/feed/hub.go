// internal/feed/hub.go
// Live feed of new posts over websockets

package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/furlorn/furlorn-backend/internal/posts"
)

const EventPostCreated = "post.created"

// Event is one frame sent to every connected client.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub keeps the connected clients and fans events out to them
type Hub struct {
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "feed")),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run serves the hub until Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)
	defer h.cleanup()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			connectedClients.Inc()
			h.logger.Debug("feed client connected", slog.Int("clients", h.ClientCount()))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.fanOut(message)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if ok {
		client.close()
		connectedClients.Dec()
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// a client that cannot keep up is dropped
	for _, client := range slow {
		h.logger.Warn("dropping slow feed client")
		droppedClients.Inc()
		h.remove(client)
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.close()
		connectedClients.Dec()
	}
	h.clients = make(map[*Client]struct{})
}

// Publish queues an event for every client. It never blocks; when the queue
// is full the event is dropped.
func (h *Hub) Publish(ctx context.Context, eventType string, data interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode feed event", slog.String("type", eventType), slog.Any("error", err))
		return
	}

	select {
	case h.broadcast <- message:
		publishedEvents.WithLabelValues(eventType).Inc()
	case <-h.ctx.Done():
	default:
		h.logger.WarnContext(ctx, "feed queue full, event dropped", slog.String("type", eventType))
	}
}

// PublishPost announces a newly created post.
func (h *Hub) PublishPost(ctx context.Context, post *posts.Post) {
	h.Publish(ctx, EventPostCreated, post)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown stops the hub and closes every connection. It waits for the run
// loop to exit or for ctx to end.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
