package telegram

import (
	"context"
	"errors"
	"time"

	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/config"
	"trackbot/backend/internal/conversation"
	"trackbot/backend/internal/localization"
	"trackbot/backend/internal/models"
	"trackbot/backend/internal/tracking"
	"trackbot/backend/internal/validation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// MessageSender delivers a text message to a chat.
type MessageSender interface {
	Send(ctx context.Context, chatID int64, text string, opts models.SendOptions) error
}

// BotService dispatches Telegram updates to the tracking service.
// Updates are handled one at a time; report generation runs in the background.
type BotService struct {
	Out      MessageSender
	Tracking *tracking.Service
	Prompts  *conversation.Store
	Admins   *auth.Admins
	Texts    *localization.Localizer

	spawn func(func())
}

func NewBotService(out MessageSender, svc *tracking.Service, prompts *conversation.Store, admins *auth.Admins, texts *localization.Localizer) *BotService {
	return &BotService{
		Out:      out,
		Tracking: svc,
		Prompts:  prompts,
		Admins:   admins,
		Texts:    texts,
		spawn:    func(f func()) { go f() },
	}
}

// Run processes updates until ctx is cancelled or the channel is closed.
func (s *BotService) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			log.Info("Telegram dispatcher stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

func (s *BotService) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		s.handleIncomingMessage(ctx, update.Message)
	case update.EditedMessage != nil && update.EditedMessage.Location != nil:
		// Live locations arrive as edits of the original location message.
		s.handleLocation(ctx, update.EditedMessage)
	}
}

func (s *BotService) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	switch {
	case msg.Location != nil:
		s.handleLocation(ctx, msg)
	case msg.IsCommand():
		s.handleCommand(ctx, msg)
	case msg.Text != "":
		s.handleCoordinateReply(ctx, msg)
	}
}

func (s *BotService) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	log.WithFields(log.Fields{"command": msg.Command(), "user_id": msg.From.ID, "chat_id": msg.Chat.ID}).Debug("Command received")

	switch msg.Command() {
	case "start", "help":
		s.reply(ctx, msg.Chat.ID, s.Texts.Text("help"), models.SendOptions{Markdown: true})
	case "loc":
		s.handleLocCommand(ctx, msg)
	case "timing":
		s.handleTimingCommand(ctx, msg)
	case "geo":
		s.handleGeoCommand(ctx, msg)
	case "changeOP":
		HandleChangeOPCommand(ctx, msg, s.Tracking, s.Out, s.Texts)
	case "changeOPs":
		HandleChangeOPsCommand(ctx, msg, s.Tracking, s.Out, s.Texts)
	case "getdestination":
		s.reply(ctx, msg.Chat.ID, s.Texts.Text("destination_info"), models.SendOptions{Markdown: true})
	case "diagnostico":
		s.handleDiagnosticsCommand(ctx, msg)
	}
}

func (s *BotService) handleLocation(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	_ = s.Tracking.OnLocationReport(ctx, models.LocationReport{
		ChatID:    msg.Chat.ID,
		ChatTitle: msg.Chat.Title,
		Private:   msg.Chat.IsPrivate(),
		UserID:    msg.From.ID,
		Coordinates: models.Coordinates{
			Latitude:  msg.Location.Latitude,
			Longitude: msg.Location.Longitude,
		},
	})
}

func (s *BotService) handleLocCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.IsPrivate() {
		s.reply(ctx, msg.Chat.ID, s.Texts.Text("loc_private"), models.SendOptions{})
		return
	}
	s.Tracking.RegisterGroup(msg.Chat.ID, msg.Chat.Title)
	s.reply(ctx, msg.Chat.ID, s.Texts.Text("loc_group"), models.SendOptions{})
}

func (s *BotService) handleTimingCommand(ctx context.Context, msg *tgbotapi.Message) {
	if err := s.Admins.Require(msg.From.ID); err != nil {
		s.reply(ctx, msg.Chat.ID, s.Texts.Text("not_admin"), models.SendOptions{})
		return
	}

	s.Prompts.Begin(conversation.Key{ChatID: msg.Chat.ID, UserID: msg.From.ID}, conversation.KindTimingDestination)
	s.reply(ctx, msg.Chat.ID, s.Texts.Text("timing_prompt_intro"), models.SendOptions{})
	s.reply(ctx, msg.Chat.ID, s.Texts.Text("timing_prompt"), models.SendOptions{})
}

// handleCoordinateReply consumes plain text from a user with a pending
// timing prompt. Any reply ends the prompt, valid or not.
func (s *BotService) handleCoordinateReply(ctx context.Context, msg *tgbotapi.Message) {
	chatID, fromID := msg.Chat.ID, msg.From.ID
	if _, ok := s.Prompts.Take(conversation.Key{ChatID: chatID, UserID: fromID}); !ok {
		return
	}

	dest, err := validation.ParseCoordinates(msg.Text)
	if err != nil {
		log.WithFields(log.Fields{"chat_id": chatID, "user_id": fromID, "text": msg.Text}).WithError(err).Warn("Invalid destination coordinates")
		if errors.Is(err, validation.ErrMalformedCoordinates) {
			s.reply(ctx, chatID, s.Texts.Text("coords_malformed"), models.SendOptions{})
		} else {
			s.reply(ctx, chatID, s.Texts.Text("coords_out_of_range"), models.SendOptions{})
		}
		return
	}

	s.reply(ctx, chatID, s.Texts.Text("coords_confirm", dest.String(), dest.String()), models.SendOptions{Markdown: true})

	s.spawn(func() {
		reportCtx, cancel := context.WithTimeout(ctx, config.ReportTimeout)
		defer cancel()

		err := s.Tracking.OnTimingRequest(reportCtx, chatID, fromID, dest)
		switch {
		case err == nil:
		case errors.Is(err, tracking.ErrNoData):
			s.reply(reportCtx, chatID, s.Texts.Text("no_data"), models.SendOptions{})
		case errors.Is(err, auth.ErrNotAdmin):
			s.reply(reportCtx, chatID, s.Texts.Text("not_admin"), models.SendOptions{})
		default:
			log.WithError(err).WithField("chat_id", chatID).Error("Timing report failed")
			s.reply(reportCtx, chatID, s.Texts.Text("timing_failed"), models.SendOptions{})
		}
	})
}

func (s *BotService) handleGeoCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID, fromID := msg.Chat.ID, msg.From.ID
	if err := s.Admins.Require(fromID); err != nil {
		s.reply(ctx, chatID, s.Texts.Text("not_admin"), models.SendOptions{})
		return
	}

	s.reply(ctx, chatID, s.Texts.Text("geo_started"), models.SendOptions{})

	s.spawn(func() {
		reportCtx, cancel := context.WithTimeout(ctx, config.ReportTimeout)
		defer cancel()

		err := s.Tracking.OnGeoRequest(reportCtx, chatID, fromID)
		switch {
		case err == nil:
		case errors.Is(err, tracking.ErrNoData):
			s.reply(reportCtx, chatID, s.Texts.Text("no_data"), models.SendOptions{})
		default:
			log.WithError(err).WithField("chat_id", chatID).Error("Geo report failed")
			s.reply(reportCtx, chatID, s.Texts.Text("geo_failed"), models.SendOptions{})
		}
	})
}

func (s *BotService) handleDiagnosticsCommand(ctx context.Context, msg *tgbotapi.Message) {
	text, err := s.Tracking.Diagnostics(msg.From.ID, time.Now())
	switch {
	case errors.Is(err, auth.ErrNotAdmin):
		s.reply(ctx, msg.Chat.ID, s.Texts.Text("diagnostics_not_admin"), models.SendOptions{})
	case err != nil:
		s.reply(ctx, msg.Chat.ID, s.Texts.Text("diagnostics_failed", err.Error()), models.SendOptions{})
	default:
		s.reply(ctx, msg.Chat.ID, text, models.SendOptions{Markdown: true, DisableLinkPreview: true})
	}
}

func (s *BotService) reply(ctx context.Context, chatID int64, text string, opts models.SendOptions) {
	reply(ctx, s.Out, chatID, text, opts)
}

func reply(ctx context.Context, out MessageSender, chatID int64, text string, opts models.SendOptions) {
	if err := out.Send(ctx, chatID, text, opts); err != nil {
		log.WithField("chat_id", chatID).WithError(err).Warn("Reply not delivered")
	}
}
