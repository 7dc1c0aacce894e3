package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/Wyydra/callsim/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from the same process; local development tools proxy
	// from other ports.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSClient struct {
	id   domain.ClientID
	conn *websocket.Conn

	mu sync.Mutex
}

type callEventDTO struct {
	Event      string          `json:"event"`
	Call       callSnapshotDTO `json:"call"`
	Transcript string          `json:"transcript,omitempty"`
}

func (c *WSClient) ID() string {
	return c.id.String()
}

func (c *WSClient) SendEvent(ev domain.CallEvent) error {
	dto := callEventDTO{
		Event:      string(ev.Type),
		Call:       toCallSnapshotDTO(ev.Snapshot),
		Transcript: ev.Transcript,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(dto)
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

// ServeWS subscribes a browser to call events. Browsers only listen; call
// control goes through the REST endpoints.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	clientID := domain.NewClientID()
	client := &WSClient{
		id:   clientID,
		conn: conn,
	}

	l := log.With().Str("client_id", clientID.String()).Logger()
	l.Info().Msg("New client connected")

	h.Hub.Register(client)

	defer func() {
		l.Info().Msg("Client disconnected")
		h.Hub.Unregister(client)
		conn.Close()
	}()

	// Drain reads so close frames and pings are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}
	}
}
