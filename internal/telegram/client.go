package telegram

import (
	"context"
	"fmt"

	"trackbot/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Sender is the part of *tgbotapi.BotAPI used to deliver messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers text messages through the Bot API.
type Notifier struct {
	bot Sender
}

func NewNotifier(bot Sender) *Notifier {
	return &Notifier{bot: bot}
}

// Send posts text to chatID. Markdown uses Telegram's legacy Markdown mode;
// callers escape free text themselves.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string, opts models.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if opts.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	msg.DisableWebPagePreview = opts.DisableLinkPreview

	if _, err := n.bot.Send(msg); err != nil {
		log.WithField("chat_id", chatID).WithError(err).Error("Failed to send Telegram message")
		return fmt.Errorf("telegram send to %d: %w", chatID, err)
	}
	return nil
}
