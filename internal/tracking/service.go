// Package tracking wires inbound bot and API operations to the registry,
// the report builder and the outbound notifier.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trackbot/backend/internal/auth"
	"trackbot/backend/internal/localization"
	"trackbot/backend/internal/models"
	"trackbot/backend/internal/registry"
	"trackbot/backend/internal/report"
	"trackbot/backend/internal/validation"

	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

// ErrNoData is returned when no registered chat has a tracked user.
var ErrNoData = errors.New("no tracked users")

// Notifier delivers a message to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, opts models.SendOptions) error
}

// ReportRecorder persists an audit entry per delivered report.
type ReportRecorder interface {
	SaveReportLog(ctx context.Context, entry *models.ReportLog) error
}

// PositionPublisher receives every recorded position. Publish must not block.
type PositionPublisher interface {
	Publish(ev models.PositionEvent)
}

var reportOptions = models.SendOptions{Markdown: true, DisableLinkPreview: true}

type Service struct {
	registry    *registry.Registry
	builder     *report.Builder
	notifier    Notifier
	admins      *auth.Admins
	texts       *localization.Localizer
	adminChatID int64

	recorder  ReportRecorder
	publisher PositionPublisher
}

func NewService(reg *registry.Registry, builder *report.Builder, notifier Notifier, admins *auth.Admins, texts *localization.Localizer, adminChatID int64) *Service {
	return &Service{
		registry:    reg,
		builder:     builder,
		notifier:    notifier,
		admins:      admins,
		texts:       texts,
		adminChatID: adminChatID,
	}
}

// SetRecorder enables report audit logging.
func (s *Service) SetRecorder(r ReportRecorder) { s.recorder = r }

// SetPublisher enables the live position feed.
func (s *Service) SetPublisher(p PositionPublisher) { s.publisher = p }

func (s *Service) AdminChatID() int64 { return s.adminChatID }

// RequireAdmin returns auth.ErrNotAdmin for users outside the allow-list.
func (s *Service) RequireAdmin(userID int64) error { return s.admins.Require(userID) }

// OnLocationReport records a position. In a private chat the user ID doubles
// as the chat key and the chat name follows the user's current display name.
func (s *Service) OnLocationReport(ctx context.Context, r models.LocationReport) error {
	if err := validation.ValidateCoordinates(r.Coordinates); err != nil {
		log.WithFields(log.Fields{"chat_id": r.ChatID, "user_id": r.UserID}).WithError(err).Warn("Discarding invalid location")
		return err
	}

	chatID := r.ChatID
	if r.Private {
		chatID = r.UserID
		s.registry.SetChatName(chatID, "Personal - "+s.registry.DisplayName(r.UserID))
	} else {
		name := r.ChatTitle
		if name == "" {
			name = fmt.Sprintf("Grupo %d", chatID)
		}
		if s.registry.RegisterChat(chatID, name) {
			log.WithFields(log.Fields{"chat_id": chatID, "name": name}).Info("Group registered automatically")
		}
	}

	at := s.registry.RecordPosition(chatID, r.UserID, r.Coordinates)
	log.WithFields(log.Fields{
		"chat_id":   chatID,
		"user_id":   r.UserID,
		"latitude":  r.Coordinates.Latitude,
		"longitude": r.Coordinates.Longitude,
	}).Debug("Location recorded")

	if s.publisher != nil {
		chatName, _ := s.registry.ChatName(chatID)
		s.publisher.Publish(models.PositionEvent{
			ChatID:     chatID,
			ChatName:   chatName,
			UserID:     r.UserID,
			UserName:   s.registry.DisplayName(r.UserID),
			Latitude:   r.Coordinates.Latitude,
			Longitude:  r.Coordinates.Longitude,
			RecordedAt: at,
			Type:       models.EventTypePosition,
		})
	}
	return nil
}

// RegisterGroup registers a group chat on /loc if it is unknown.
func (s *Service) RegisterGroup(chatID int64, title string) {
	if title == "" {
		title = fmt.Sprintf("Grupo %d", chatID)
	}
	if s.registry.RegisterChat(chatID, title) {
		log.WithFields(log.Fields{"chat_id": chatID, "name": title}).Info("Group registered")
	}
}

// OnTimingRequest builds the timing report for dest and delivers it to the
// admin chat. The requester gets a confirmation unless it is the admin chat.
func (s *Service) OnTimingRequest(ctx context.Context, requesterChatID, fromUserID int64, dest models.Coordinates) error {
	if err := s.admins.Require(fromUserID); err != nil {
		return err
	}

	snap := s.registry.Snapshot()
	if snap.Empty() {
		return ErrNoData
	}

	started := time.Now()
	rep := s.builder.BuildTiming(ctx, dest, snap)
	body := rep.Render()
	if err := s.notifier.Send(ctx, s.adminChatID, body, reportOptions); err != nil {
		return fmt.Errorf("deliver timing report: %w", err)
	}
	log.WithFields(log.Fields{
		"requested_by": fromUserID,
		"entries":      len(rep.Entries),
		"errors":       len(rep.Errors),
		"took":         time.Since(started).Round(time.Millisecond),
	}).Info("Timing report delivered")

	s.record(ctx, &models.ReportLog{
		Kind:         models.ReportKindTiming,
		RequestedBy:  fromUserID,
		TargetChatID: s.adminChatID,
		Destination:  dest.String(),
		EntryCount:   len(rep.Entries),
		ErrorCount:   len(rep.Errors),
		UserIDs:      pq.Int64Array(rep.UserIDs()),
		Body:         body,
	})

	s.confirm(ctx, requesterChatID, "timing_sent")
	return nil
}

// OnGeoRequest builds the geo report and delivers it to the admin chat.
func (s *Service) OnGeoRequest(ctx context.Context, requesterChatID, fromUserID int64) error {
	if err := s.admins.Require(fromUserID); err != nil {
		return err
	}

	snap := s.registry.Snapshot()
	if snap.Empty() {
		return ErrNoData
	}

	rep := s.builder.BuildGeo(ctx, snap)
	body := rep.Render()
	if err := s.notifier.Send(ctx, s.adminChatID, body, reportOptions); err != nil {
		return fmt.Errorf("deliver geo report: %w", err)
	}
	log.WithFields(log.Fields{"requested_by": fromUserID, "entries": len(rep.Entries)}).Info("Geo report delivered")

	s.record(ctx, &models.ReportLog{
		Kind:         models.ReportKindGeo,
		RequestedBy:  fromUserID,
		TargetChatID: s.adminChatID,
		EntryCount:   len(rep.Entries),
		ErrorCount:   rep.ErrorCount(),
		UserIDs:      pq.Int64Array(rep.UserIDs()),
		Body:         body,
	})

	s.confirm(ctx, requesterChatID, "geo_sent")
	return nil
}

// TimingTo is the HTTP variant of the timing flow: the report goes to
// targetChatID. When nothing is tracked the target chat is told so.
func (s *Service) TimingTo(ctx context.Context, targetChatID int64, dest models.Coordinates) (report.TimingReport, error) {
	snap := s.registry.Snapshot()
	if snap.Empty() {
		log.WithField("chat_id", targetChatID).Warn("Timing requested through the API with no tracked users")
		if err := s.notifier.Send(ctx, targetChatID, s.texts.Text("no_data_api"), models.SendOptions{Markdown: true}); err != nil {
			log.WithError(err).Error("Failed to send no-data notice")
		}
		return report.TimingReport{}, ErrNoData
	}

	rep := s.builder.BuildTiming(ctx, dest, snap)
	body := rep.Render()
	if err := s.notifier.Send(ctx, targetChatID, body, reportOptions); err != nil {
		return rep, fmt.Errorf("deliver timing report: %w", err)
	}
	log.WithFields(log.Fields{"chat_id": targetChatID, "entries": len(rep.Entries)}).Info("Timing report delivered through the API")

	s.record(ctx, &models.ReportLog{
		Kind:         models.ReportKindTiming,
		TargetChatID: targetChatID,
		Destination:  dest.String(),
		EntryCount:   len(rep.Entries),
		ErrorCount:   len(rep.Errors),
		UserIDs:      pq.Int64Array(rep.UserIDs()),
		Body:         body,
	})
	return rep, nil
}

// OnSetDisplayName assigns an operator name to a user.
func (s *Service) OnSetDisplayName(fromUserID, targetUserID int64, name string) error {
	if err := s.admins.Require(fromUserID); err != nil {
		return err
	}
	s.registry.SetDisplayName(targetUserID, name)
	log.WithFields(log.Fields{"by": fromUserID, "user_id": targetUserID, "name": name}).Info("Display name assigned")
	return nil
}

// OnSetDisplayNames applies a comma-separated list of "id:name" pairs.
// Invalid entries are reported and skipped.
func (s *Service) OnSetDisplayNames(fromUserID int64, batch string) (BatchResult, error) {
	if err := s.admins.Require(fromUserID); err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	for _, a := range ParseNameAssignments(batch) {
		if a.Err == nil {
			s.registry.SetDisplayName(a.UserID, a.Name)
			res.Succeeded++
		} else {
			res.Failed++
		}
		res.Assignments = append(res.Assignments, a)
	}
	log.WithFields(log.Fields{"by": fromUserID, "succeeded": res.Succeeded, "failed": res.Failed}).Info("Batch name assignment completed")
	return res, nil
}

func (s *Service) confirm(ctx context.Context, requesterChatID int64, key string) {
	if requesterChatID == s.adminChatID {
		return
	}
	if err := s.notifier.Send(ctx, requesterChatID, s.texts.Text(key), models.SendOptions{}); err != nil {
		log.WithField("chat_id", requesterChatID).WithError(err).Error("Failed to send report confirmation")
	}
}

func (s *Service) record(ctx context.Context, entry *models.ReportLog) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.SaveReportLog(ctx, entry); err != nil {
		log.WithError(err).WithField("kind", entry.Kind).Error("Failed to store report log")
	}
}
