package handler

import (
	"trackbot/backend/internal/feed"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ServeWebSocket upgrades the connection and subscribes it to the position feed.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := feed.NewWebSocketClient(h.Hub, conn, c.GetString(subjectKey))
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	log.WithFields(log.Fields{"client_id": client.ID(), "subject": client.Subject}).Info("Feed subscriber connected")
	client.Run()
}
