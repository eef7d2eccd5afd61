// Package registry holds the in-memory tracking state: registered chats,
// per-chat user positions, last-update timestamps and display names.
package registry

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"trackbot/backend/internal/models"
)

type chatPositions struct {
	order     []int64 // users in first-report order
	positions map[int64]models.TrackedPosition
}

// Registry is safe for concurrent use. Every method is atomic with respect to the others.
type Registry struct {
	mu sync.RWMutex

	chatNames map[int64]string
	chatOrder []int64

	positions  map[int64]*chatPositions
	lastUpdate map[int64]map[int64]time.Time
	names      map[int64]string

	now func() time.Time
}

// New creates an empty registry. A nil clock means time.Now.
func New(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		chatNames:  make(map[int64]string),
		positions:  make(map[int64]*chatPositions),
		lastUpdate: make(map[int64]map[int64]time.Time),
		names:      make(map[int64]string),
		now:        now,
	}
}

// RegisterChat inserts the chat if it is unknown and reports whether it did.
// The name of a known chat is never changed.
func (r *Registry) RegisterChat(chatID int64, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chatNames[chatID]; ok {
		return false
	}
	r.chatNames[chatID] = name
	r.chatOrder = append(r.chatOrder, chatID)
	return true
}

// SetChatName upserts the chat name, registering the chat when needed.
func (r *Registry) SetChatName(chatID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.chatNames[chatID]; !ok {
		r.chatOrder = append(r.chatOrder, chatID)
	}
	r.chatNames[chatID] = name
}

func (r *Registry) ChatName(chatID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.chatNames[chatID]
	return name, ok
}

// RecordPosition stores the position and stamps its last-update time as one unit.
// It returns the stamp used.
func (r *Registry) RecordPosition(chatID, userID int64, c models.Coordinates) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()

	cp, ok := r.positions[chatID]
	if !ok {
		cp = &chatPositions{positions: make(map[int64]models.TrackedPosition)}
		r.positions[chatID] = cp
	}
	if _, seen := cp.positions[userID]; !seen {
		cp.order = append(cp.order, userID)
	}
	cp.positions[userID] = models.TrackedPosition{Coordinates: c, RecordedAt: at}

	stamps, ok := r.lastUpdate[chatID]
	if !ok {
		stamps = make(map[int64]time.Time)
		r.lastUpdate[chatID] = stamps
	}
	stamps[userID] = at

	return at
}

// Position returns the last recorded position of the user in the chat.
func (r *Registry) Position(chatID, userID int64) (models.TrackedPosition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.positions[chatID]
	if !ok {
		return models.TrackedPosition{}, false
	}
	p, ok := cp.positions[userID]
	return p, ok
}

// LastUpdate returns the pending last-update stamp, if the monitor has not cleared it.
func (r *Registry) LastUpdate(chatID, userID int64) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ts, ok := r.lastUpdate[chatID][userID]
	return ts, ok
}

// ClearLastUpdate deletes the stamp only if it still equals seen, so a
// position recorded after the caller read the stamp is kept. The chat entry
// is dropped once it has no stamps left.
func (r *Registry) ClearLastUpdate(chatID, userID int64, seen time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	stamps, ok := r.lastUpdate[chatID]
	if !ok {
		return false
	}
	ts, ok := stamps[userID]
	if !ok || !ts.Equal(seen) {
		return false
	}
	delete(stamps, userID)
	if len(stamps) == 0 {
		delete(r.lastUpdate, chatID)
	}
	return true
}

// Stamp is one pending last-update timestamp.
type Stamp struct {
	ChatID int64
	UserID int64
	At     time.Time
}

// PendingStamps lists every last-update stamp, chats in registration order
// (unregistered chats last) and users in first-report order.
func (r *Registry) PendingStamps() []Stamp {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Stamp
	for _, chatID := range r.positionChatOrder() {
		stamps := r.lastUpdate[chatID]
		if len(stamps) == 0 {
			continue
		}
		for _, userID := range r.positions[chatID].order {
			if ts, ok := stamps[userID]; ok {
				out = append(out, Stamp{ChatID: chatID, UserID: userID, At: ts})
			}
		}
	}
	return out
}

// positionChatOrder returns every chat holding positions. Caller holds the lock.
func (r *Registry) positionChatOrder() []int64 {
	order := make([]int64, 0, len(r.positions))
	seen := make(map[int64]bool, len(r.positions))
	for _, id := range r.chatOrder {
		if _, ok := r.positions[id]; ok {
			order = append(order, id)
			seen[id] = true
		}
	}
	// Positions can arrive for a chat before it is registered.
	var rest []int64
	for id := range r.positions {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

// SetDisplayName stores the operator-assigned label for the user. Any string is accepted.
func (r *Registry) SetDisplayName(userID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[userID] = name
}

// DisplayName returns the stored label or "Usuario <id>".
func (r *Registry) DisplayName(userID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.displayNameLocked(userID)
}

func (r *Registry) displayNameLocked(userID int64) string {
	if name, ok := r.names[userID]; ok {
		return name
	}
	return DefaultDisplayName(userID)
}

func DefaultDisplayName(userID int64) string {
	return fmt.Sprintf("Usuario %d", userID)
}

// Snapshot returns a deep copy of the registered chats and their users,
// with display names resolved at the time of the call.
func (r *Registry) Snapshot() models.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := models.Snapshot{
		Chats:   make([]models.ChatSnapshot, 0, len(r.chatOrder)),
		TakenAt: r.now(),
	}
	for _, chatID := range r.chatOrder {
		cs := models.ChatSnapshot{ChatID: chatID, Name: r.chatNames[chatID]}
		if cp, ok := r.positions[chatID]; ok {
			cs.Users = make([]models.TrackedUser, 0, len(cp.order))
			for _, userID := range cp.order {
				p := cp.positions[userID]
				cs.Users = append(cs.Users, models.TrackedUser{
					UserID:     userID,
					UserName:   r.displayNameLocked(userID),
					Position:   p.Coordinates,
					RecordedAt: p.RecordedAt,
					LastUpdate: r.lastUpdate[chatID][userID],
				})
			}
		}
		snap.Chats = append(snap.Chats, cs)
	}
	return snap
}

// Stats summarises the registry for diagnostics.
func (r *Registry) Stats() models.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.RegistryStats{
		Chats:        make([]models.Chat, 0, len(r.chatOrder)),
		DisplayNames: make(map[int64]string, len(r.names)),
	}
	for _, id := range r.chatOrder {
		stats.Chats = append(stats.Chats, models.Chat{ID: id, Name: r.chatNames[id]})
	}
	for _, chatID := range r.positionChatOrder() {
		name, ok := r.chatNames[chatID]
		if !ok {
			name = fmt.Sprintf("Grupo %d", chatID)
		}
		activity := models.ChatActivity{ChatID: chatID, Name: name, Users: len(r.positions[chatID].positions)}
		for _, ts := range r.lastUpdate[chatID] {
			if ts.After(activity.NewestUpdate) {
				activity.NewestUpdate = ts
			}
		}
		stats.Activity = append(stats.Activity, activity)
	}
	for id, name := range r.names {
		stats.DisplayNames[id] = name
	}
	return stats
}
