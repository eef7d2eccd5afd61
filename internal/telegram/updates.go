package telegram

import (
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Requester is the part of *tgbotapi.BotAPI used for non-message API calls.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// StartPolling drops any registered webhook and starts long polling.
func StartPolling(bot *tgbotapi.BotAPI) (tgbotapi.UpdatesChannel, error) {
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("delete webhook: %w", err)
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	log.Info("Telegram bot started in polling mode")
	return bot.GetUpdatesChan(u), nil
}

// RegisterWebhook points Telegram at url.
func RegisterWebhook(bot Requester, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	log.WithField("url", url).Info("Telegram webhook registered")
	return nil
}

// WebhookReceiver turns webhook POSTs into an update channel for BotService.Run.
type WebhookReceiver struct {
	updates chan tgbotapi.Update
}

func NewWebhookReceiver(buffer int) *WebhookReceiver {
	return &WebhookReceiver{updates: make(chan tgbotapi.Update, buffer)}
}

func (w *WebhookReceiver) Updates() <-chan tgbotapi.Update {
	return w.updates
}

// Handle is the gin handler for POST /bot<token>.
func (w *WebhookReceiver) Handle(c *gin.Context) {
	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.WithError(err).Warn("Invalid webhook payload")
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	select {
	case w.updates <- update:
		c.Status(http.StatusOK)
	case <-c.Request.Context().Done():
		c.Status(http.StatusServiceUnavailable)
	}
}
