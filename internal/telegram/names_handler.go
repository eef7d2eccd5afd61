package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/localization"
	"trackbot/backend/internal/models"
	"trackbot/backend/internal/tracking"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// NameAssigner defines the operations the /changeOP and /changeOPs handlers need.
type NameAssigner interface {
	RequireAdmin(userID int64) error
	OnSetDisplayName(fromUserID, targetUserID int64, name string) error
	OnSetDisplayNames(fromUserID int64, batch string) (tracking.BatchResult, error)
}

// HandleChangeOPCommand processes "/changeOP <user_id> <new_name>".
func HandleChangeOPCommand(ctx context.Context, msg *tgbotapi.Message, names NameAssigner, out MessageSender, texts *localization.Localizer) {
	chatID, fromID := msg.Chat.ID, msg.From.ID

	if err := names.RequireAdmin(fromID); err != nil {
		reply(ctx, out, chatID, texts.Text("not_admin"), models.SendOptions{})
		return
	}

	rawID, name, _ := strings.Cut(strings.TrimSpace(msg.CommandArguments()), " ")
	name = strings.TrimSpace(name)
	if rawID == "" || name == "" {
		reply(ctx, out, chatID, texts.Text("changeop_usage"), models.SendOptions{})
		return
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		reply(ctx, out, chatID, texts.Text("changeop_bad_id"), models.SendOptions{})
		return
	}

	if err := names.OnSetDisplayName(fromID, userID, name); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Failed to assign display name")
		reply(ctx, out, chatID, texts.Text("not_admin"), models.SendOptions{})
		return
	}
	reply(ctx, out, chatID, texts.Text("changeop_done", userID, name), models.SendOptions{})
}

// HandleChangeOPsCommand processes "/changeOPs id1:name1, id2:name2".
func HandleChangeOPsCommand(ctx context.Context, msg *tgbotapi.Message, names NameAssigner, out MessageSender, texts *localization.Localizer) {
	chatID, fromID := msg.Chat.ID, msg.From.ID

	if err := names.RequireAdmin(fromID); err != nil {
		reply(ctx, out, chatID, texts.Text("not_admin"), models.SendOptions{})
		return
	}

	batch := strings.TrimSpace(msg.CommandArguments())
	if batch == "" {
		reply(ctx, out, chatID, texts.Text("changeops_usage"), models.SendOptions{})
		return
	}

	res, err := names.OnSetDisplayNames(fromID, batch)
	if err != nil {
		if errors.Is(err, auth.ErrNotAdmin) {
			reply(ctx, out, chatID, texts.Text("not_admin"), models.SendOptions{})
			return
		}
		log.WithError(err).Error("Batch name assignment failed")
		reply(ctx, out, chatID, texts.Text("changeops_usage"), models.SendOptions{})
		return
	}
	reply(ctx, out, chatID, res.Render(texts), models.SendOptions{Markdown: true})
}
