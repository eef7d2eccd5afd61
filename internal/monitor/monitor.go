// Package monitor alerts users whose shared location has stopped updating.
package monitor

import (
	"context"
	"fmt"
	"time"

	"trackbot/backend/internal/models"
	"trackbot/backend/internal/registry"
	"trackbot/backend/internal/report"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers a message to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string, opts models.SendOptions) error
}

// Expirer drops state that timed out. It is called on every monitor tick.
type Expirer interface {
	Expire(now time.Time) int
}

// Monitor sweeps the registry on a fixed period. Each stale (chat, user)
// pair is alerted once; its stamp is cleared so it stays quiet until the
// next position arrives.
type Monitor struct {
	registry  *registry.Registry
	notifier  Notifier
	threshold time.Duration
	interval  time.Duration
	expirers  []Expirer
}

func New(reg *registry.Registry, notifier Notifier, threshold, interval time.Duration) *Monitor {
	return &Monitor{
		registry:  reg,
		notifier:  notifier,
		threshold: threshold,
		interval:  interval,
	}
}

// AddExpirer registers state that shares the monitor's schedule. Call before Run.
func (m *Monitor) AddExpirer(e Expirer) {
	m.expirers = append(m.expirers, e)
}

// Run blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	log.WithFields(log.Fields{"interval": m.interval, "threshold": m.threshold}).Info("Staleness monitor started")
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Staleness monitor stopped")
			return ctx.Err()
		case now := <-ticker.C:
			m.Sweep(ctx, now)
		}
	}
}

// Sweep runs one pass at the given time and returns how many alerts were attempted.
func (m *Monitor) Sweep(ctx context.Context, now time.Time) int {
	for _, e := range m.expirers {
		if n := e.Expire(now); n > 0 {
			log.WithField("expired", n).Debug("Expired pending prompts")
		}
	}

	alerts := 0
	for _, stamp := range m.registry.PendingStamps() {
		if now.Sub(stamp.At) < m.threshold {
			continue
		}
		if _, ok := m.registry.Position(stamp.ChatID, stamp.UserID); !ok {
			continue
		}

		alerts++
		name := m.registry.DisplayName(stamp.UserID)
		fields := log.Fields{"chat_id": stamp.ChatID, "user_id": stamp.UserID}
		if err := m.notifier.Send(ctx, stamp.ChatID, m.alertText(name), models.SendOptions{Markdown: true}); err != nil {
			log.WithFields(fields).WithError(err).Error("Failed to send staleness alert")
		} else {
			log.WithFields(fields).Info("Staleness alert sent")
		}

		// Cleared even when the send failed; alerts are not retried.
		m.registry.ClearLastUpdate(stamp.ChatID, stamp.UserID, stamp.At)
	}
	return alerts
}

func (m *Monitor) alertText(name string) string {
	return fmt.Sprintf("⚠️ *Alerta de Ubicación*\n\n"+
		"%s, han pasado más de %d minutos sin recibir actualizaciones de tu ubicación.\n\n"+
		"Si aún estás compartiendo tu ubicación, por favor ignora este mensaje.\n"+
		"Si has dejado de compartir tu ubicación, por favor actívala nuevamente para continuar recibiendo el servicio.",
		report.EscapeMarkdown(name), int(m.threshold/time.Minute))
}
