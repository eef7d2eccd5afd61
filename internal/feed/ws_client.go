package feed

import (
	"encoding/json"
	"time"

	"trackbot/backend/internal/config"
	"trackbot/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient streams position events to a browser or dashboard.
// Subscribers only receive; anything they send is discarded.
type WebSocketClient struct {
	id      string
	Subject string
	Conn    *websocket.Conn
	Hub     *Hub
	Send    chan models.PositionEvent
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, subject string) *WebSocketClient {
	return &WebSocketClient{
		id:      uuid.NewString(),
		Subject: subject,
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan models.PositionEvent, config.FeedBufferSize),
	}
}

func (c *WebSocketClient) ID() string                                { return c.id }
func (c *WebSocketClient) SendChannel() chan<- models.PositionEvent { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithField("client_id", c.id).WithError(err).Warn("Feed connection closed unexpectedly")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.WithField("client_id", c.id).WithError(err).Error("Failed to encode position event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
