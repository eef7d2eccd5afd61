package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"trackbot/backend/internal/tracking"
	"trackbot/backend/internal/validation"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ChatID accepts a Telegram chat ID as a JSON number or string.
type ChatID int64

func (id *ChatID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("chatId: %w", err)
	}
	*id = ChatID(v)
	return nil
}

type timingRequest struct {
	Coordinates string `json:"coordinates"`
	ChatID      ChatID `json:"chatId"`
}

// PostTiming computes a timing report and sends it to the requested chat.
func (h *Handler) PostTiming(c *gin.Context) {
	var req timingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Coordinates == "" || req.ChatID == 0 {
		log.WithError(err).Warn("Timing request without coordinates or chatId")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Faltan parámetros requeridos: coordinates o chatId"})
		return
	}

	chatID := int64(req.ChatID)
	log.WithFields(log.Fields{"destination": req.Coordinates, "chat_id": chatID}).Info("Timing request received through the API")

	dest, err := validation.ParseCoordinates(req.Coordinates)
	if err != nil {
		log.WithField("coordinates", req.Coordinates).WithError(err).Error("Invalid coordinates")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coordenadas inválidas"})
		return
	}

	rep, err := h.Timing.TimingTo(c.Request.Context(), chatID, dest)
	switch {
	case errors.Is(err, tracking.ErrNoData):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No hay datos de ubicación disponibles"})
	case err != nil:
		log.WithError(err).WithField("chat_id", chatID).Error("Timing API request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "entries": len(rep.Entries), "errors": len(rep.Errors)})
	}
}
