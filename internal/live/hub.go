// internal/live/hub.go

package live

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/weekender/weekender-bot/internal/common/logging"
	"github.com/weekender/weekender-bot/internal/notification"
)

// Hub fans mailing events out to every connected admin
type Hub struct {
	clients    map[*Client]struct{}
	clientsMux sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger zerolog.Logger
}

var _ notification.Observer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logging.Component("live"),
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection
func (h *Hub) Run(ctx context.Context) {
	defer h.cleanup()

	for {
		select {
		case client := <-h.register:
			h.clientsMux.Lock()
			h.clients[client] = struct{}{}
			n := len(h.clients)
			h.clientsMux.Unlock()
			h.logger.Info().Int64("admin_tg_id", client.adminTgID).Int("clients", n).Msg("admin connected")

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info().Int64("admin_tg_id", client.adminTgID).Int("clients", len(h.clients)).Msg("admin disconnected")
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	h.clientsMux.RLock()
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}
	h.clientsMux.RUnlock()

	// a client that cannot keep up is dropped
	for _, client := range slow {
		h.remove(client)
	}
}

func (h *Hub) cleanup() {
	close(h.done)

	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		close(client.send)
	}
	h.clients = make(map[*Client]struct{})
}

// Clients is the number of connected admins
func (h *Hub) Clients() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// Publish queues an event; it is dropped when the hub is saturated or stopped
func (h *Hub) Publish(eventType EventType, data interface{}) {
	payload, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()})
	if err != nil {
		h.logger.Error().Err(err).Str("type", string(eventType)).Msg("failed to encode event")
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		h.logger.Warn().Str("type", string(eventType)).Msg("live event dropped")
	}
}

func (h *Hub) MailingStarted(jobID uuid.UUID, adminTgID int64, total int) {
	h.Publish(EventMailingStarted, MailingStarted{JobID: jobID, AdminTgID: adminTgID, Total: total})
}

func (h *Hub) MailingProgress(jobID uuid.UUID, p notification.Progress) {
	h.Publish(EventMailingProgress, MailingProgress{
		JobID:   jobID,
		Done:    p.Done,
		Total:   p.Total,
		Success: p.Success,
		Errors:  p.Errors,
	})
}

func (h *Hub) MailingFinished(report *notification.Report) {
	h.Publish(EventMailingFinished, report)
}
