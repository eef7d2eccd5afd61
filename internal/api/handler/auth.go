package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const subjectKey = "api_subject"

// RequireAPIToken accepts "Authorization: Bearer <token>", the legacy
// X-API-Token header, or a token query parameter for WebSocket clients.
func (h *Handler) RequireAPIToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		subject, err := h.Auth.Authenticate(token)
		if err != nil {
			log.WithFields(log.Fields{"path": c.FullPath(), "ip": c.ClientIP()}).WithError(err).Warn("Rejected API request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token de API inválido"})
			return
		}
		c.Set(subjectKey, subject)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token := c.GetHeader("X-API-Token"); token != "" {
		return token
	}
	return c.Query("token")
}
