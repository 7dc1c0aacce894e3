package ws

import (
	"context"
	"sync"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/rs/zerolog/log"
)

const broadcastBuffer = 64

// Hub fans call events out to every connected browser.
// implements port.CallGateway
type Hub struct {
	clients    map[Client]bool
	broadcast  chan domain.CallEvent
	register   chan Client
	unregister chan Client
	quit       chan struct{}
	stopOnce   sync.Once

	// last state event, replayed to clients that join mid-call
	last *domain.CallEvent
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[Client]bool),
		broadcast:  make(chan domain.CallEvent, broadcastBuffer),
		register:   make(chan Client),
		unregister: make(chan Client),
		quit:       make(chan struct{}),
	}
}

// Publish never blocks: when the hub lags the event is dropped.
func (h *Hub) Publish(ctx context.Context, ev domain.CallEvent) error {
	select {
	case h.broadcast <- ev:
	default:
		log.Warn().Str("type", string(ev.Type)).Msg("Broadcast channel full, dropping event")
	}
	return nil
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Info().Str("client_id", client.ID()).Msg("Client registered")
			if h.last != nil {
				h.send(client, *h.last)
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				log.Info().Str("client_id", client.ID()).Msg("Client unregistered")
			}

		case ev := <-h.broadcast:
			if ev.Type == domain.EventCallState {
				h.last = &ev
			}
			for client := range h.clients {
				h.send(client, ev)
			}
		}
	}
}

func (h *Hub) send(client Client, ev domain.CallEvent) {
	if err := client.SendEvent(ev); err != nil {
		log.Error().Err(err).Str("client_id", client.ID()).Msg("Error sending event")
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) Register(c Client) {
	select {
	case h.register <- c:
	case <-h.quit:
		c.Close()
	}
}

func (h *Hub) Unregister(c Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}
