package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ListReports returns the newest report logs. ?limit=N, default 20.
func (h *Handler) ListReports(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
			return
		}
		limit = v
	}

	logs, err := h.Reports.RecentReportLogs(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Failed to load report logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": logs})
}
