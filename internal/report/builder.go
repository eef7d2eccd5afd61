// Package report turns a registry snapshot into timing and geo reports.
package report

import (
	"context"
	"math"
	"sort"
	"time"

	"trackbot/backend/internal/gateway"
	"trackbot/backend/internal/models"

	log "github.com/sirupsen/logrus"
)

// Builder resolves every tracked user through the gateway.
type Builder struct {
	router   gateway.Router
	geocoder gateway.Geocoder
}

func NewBuilder(router gateway.Router, geocoder gateway.Geocoder) *Builder {
	return &Builder{router: router, geocoder: geocoder}
}

// TimingReport holds successful entries sorted by ETA and failed entries in encounter order.
type TimingReport struct {
	Destination models.Coordinates
	Entries     []models.TimingEntry
	Errors      []models.TimingEntry
}

// GeoReport lists every (chat, user) pair in snapshot order.
type GeoReport struct {
	Entries []models.GeoEntry
}

// BuildTiming computes one route per user. A user tracked in more than one
// chat is reported once, under the first chat it appears in.
func (b *Builder) BuildTiming(ctx context.Context, destination models.Coordinates, snap models.Snapshot) TimingReport {
	rep := TimingReport{Destination: destination}
	seen := make(map[int64]bool)

	for _, chat := range snap.Chats {
		for _, user := range chat.Users {
			if seen[user.UserID] {
				continue
			}
			seen[user.UserID] = true

			entry := models.TimingEntry{
				ChatID:             chat.ChatID,
				GroupName:          chat.Name,
				UserID:             user.UserID,
				UserName:           user.UserName,
				MinutesSinceUpdate: MinutesSince(snap.TakenAt, user.RecordedAt),
			}

			route, err := b.router.CalculateRoute(ctx, user.Position, destination)
			if err != nil {
				log.WithFields(log.Fields{"chat_id": chat.ChatID, "user_id": user.UserID}).WithError(err).Warn("Route calculation failed")
				entry.Err = err
				rep.Errors = append(rep.Errors, entry)
				continue
			}

			entry.DistanceKm = math.Round(route.LengthMeters/10) / 100
			entry.DurationMin = int(math.Round(route.DurationSeconds / 60))
			rep.Entries = append(rep.Entries, entry)
		}
	}

	sort.SliceStable(rep.Entries, func(i, j int) bool {
		return rep.Entries[i].DurationMin < rep.Entries[j].DurationMin
	})
	return rep
}

// BuildGeo reverse-geocodes every (chat, user) pair without deduplication.
func (b *Builder) BuildGeo(ctx context.Context, snap models.Snapshot) GeoReport {
	var rep GeoReport

	for _, chat := range snap.Chats {
		for _, user := range chat.Users {
			entry := models.GeoEntry{
				ChatID:             chat.ChatID,
				GroupName:          chat.Name,
				UserID:             user.UserID,
				UserName:           user.UserName,
				MinutesSinceUpdate: MinutesSince(snap.TakenAt, user.RecordedAt),
			}

			place, err := b.geocoder.ReverseGeocode(ctx, user.Position)
			if err != nil {
				log.WithFields(log.Fields{"chat_id": chat.ChatID, "user_id": user.UserID}).WithError(err).Warn("Reverse geocoding failed")
				entry.Err = err
				place = models.Place{Neighborhood: models.PlaceError, Municipality: models.PlaceError}
			}
			entry.Place = place
			rep.Entries = append(rep.Entries, entry)
		}
	}
	return rep
}

// MinutesSince returns whole minutes elapsed between then and now, never negative.
func MinutesSince(now, then time.Time) int {
	if then.IsZero() || now.Before(then) {
		return 0
	}
	return int(now.Sub(then) / time.Minute)
}

// UserIDs lists every user covered by the report, successes first.
func (r TimingReport) UserIDs() []int64 {
	ids := make([]int64, 0, len(r.Entries)+len(r.Errors))
	for _, e := range r.Entries {
		ids = append(ids, e.UserID)
	}
	for _, e := range r.Errors {
		ids = append(ids, e.UserID)
	}
	return ids
}

func (r GeoReport) UserIDs() []int64 {
	ids := make([]int64, 0, len(r.Entries))
	for _, e := range r.Entries {
		ids = append(ids, e.UserID)
	}
	return ids
}

func (r GeoReport) ErrorCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}
