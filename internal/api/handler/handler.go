package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/feed"
	"trackbot/backend/internal/models"
	"trackbot/backend/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TimingService runs the HTTP variant of the timing flow.
type TimingService interface {
	TimingTo(ctx context.Context, targetChatID int64, dest models.Coordinates) (report.TimingReport, error)
}

// ReportLister reads the report audit log.
type ReportLister interface {
	RecentReportLogs(ctx context.Context, limit int) ([]models.ReportLog, error)
}

// Handler serves the HTTP API. Hub and Reports are optional.
type Handler struct {
	Timing  TimingService
	Hub     *feed.Hub
	Auth    *auth.APIAuthenticator
	Reports ReportLister

	upgrader websocket.Upgrader
}

func NewHandler(timing TimingService, hub *feed.Hub, authenticator *auth.APIAuthenticator, reports ReportLister, allowedOrigins []string) *Handler {
	return &Handler{
		Timing:  timing,
		Hub:     hub,
		Auth:    authenticator,
		Reports: reports,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)

	api := r.Group("/api", h.RequireAPIToken())
	api.POST("/timing", h.PostTiming)
	if h.Reports != nil {
		api.GET("/reports", h.ListReports)
	}

	if h.Hub != nil {
		r.GET("/ws/positions", h.RequireAPIToken(), h.ServeWebSocket)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339Nano)})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
