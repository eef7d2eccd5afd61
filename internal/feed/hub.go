// Package feed fans recorded positions out to live WebSocket subscribers.
package feed

import (
	"context"
	"sync/atomic"

	"trackbot/backend/internal/config"
	"trackbot/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

// Relay shares events between instances. With a relay every event makes a
// round trip through it, so local subscribers see local and remote events alike.
type Relay interface {
	PublishPosition(ctx context.Context, ev models.PositionEvent) error
	SubscribePositions(ctx context.Context) (<-chan models.PositionEvent, error)
}

type Hub struct {
	RegisterCh   chan Client
	UnregisterCh chan Client

	outbound chan models.PositionEvent
	clients  map[string]Client
	relay    Relay
	count    atomic.Int64
	done     chan struct{}
}

// NewHub creates a hub. relay may be nil for a single instance.
func NewHub(relay Relay) *Hub {
	return &Hub{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		outbound:     make(chan models.PositionEvent, config.FeedBufferSize),
		clients:      make(map[string]Client),
		relay:        relay,
		done:         make(chan struct{}),
	}
}

// Publish queues ev for broadcast. It never blocks; events are dropped when the queue is full.
func (h *Hub) Publish(ev models.PositionEvent) {
	select {
	case h.outbound <- ev:
	default:
		log.WithFields(log.Fields{"chat_id": ev.ChatID, "user_id": ev.UserID}).Warn("Feed queue full, dropping position event")
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Register adds c unless the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c. It returns immediately once the hub has stopped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	var incoming <-chan models.PositionEvent
	if h.relay != nil {
		ch, err := h.relay.SubscribePositions(ctx)
		if err != nil {
			log.WithError(err).Error("Feed relay unavailable, broadcasting locally only")
			h.relay = nil
		} else {
			incoming = ch
			log.Info("Feed relay subscribed")
		}
	}

	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
			}
			h.count.Store(0)
			log.Info("Feed hub stopped")
			return nil

		case c := <-h.RegisterCh:
			h.clients[c.ID()] = c
			h.count.Store(int64(len(h.clients)))
			log.WithField("client_id", c.ID()).Debug("Feed client registered")

		case c := <-h.UnregisterCh:
			h.remove(c.ID())

		case ev := <-h.outbound:
			if h.relay == nil {
				h.broadcast(ev)
				continue
			}
			if err := h.relay.PublishPosition(ctx, ev); err != nil {
				log.WithError(err).Warn("Feed relay publish failed, delivering locally")
				h.broadcast(ev)
			}

		case ev, ok := <-incoming:
			if !ok {
				log.Warn("Feed relay subscription closed, broadcasting locally only")
				incoming = nil
				h.relay = nil
				continue
			}
			h.broadcast(ev)
		}
	}
}

func (h *Hub) broadcast(ev models.PositionEvent) {
	for id, c := range h.clients {
		select {
		case c.SendChannel() <- ev:
		default:
			log.WithField("client_id", id).Warn("Feed client too slow, disconnecting")
			h.remove(id)
		}
	}
}

func (h *Hub) remove(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	c.Close()
	h.count.Store(int64(len(h.clients)))
	log.WithField("client_id", id).Debug("Feed client unregistered")
}
