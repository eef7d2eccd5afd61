package models

import "time"

// TrackedUser is one user's position as captured by a registry snapshot.
type TrackedUser struct {
	UserID     int64
	UserName   string
	Position   Coordinates
	RecordedAt time.Time
	// LastUpdate is zero once the staleness monitor has cleared it.
	LastUpdate time.Time
}

// ChatSnapshot holds the users of one registered chat in first-report order.
type ChatSnapshot struct {
	ChatID int64
	Name   string
	Users  []TrackedUser
}

// Snapshot is a consistent, detached copy of the registry used to build reports.
type Snapshot struct {
	Chats   []ChatSnapshot
	TakenAt time.Time
}

// Empty reports whether no registered chat has any tracked user.
func (s Snapshot) Empty() bool {
	for _, c := range s.Chats {
		if len(c.Users) > 0 {
			return false
		}
	}
	return true
}

// UserCount returns the number of (chat, user) pairs in the snapshot.
func (s Snapshot) UserCount() int {
	n := 0
	for _, c := range s.Chats {
		n += len(c.Users)
	}
	return n
}

// ChatActivity is the per-chat part of RegistryStats.
type ChatActivity struct {
	ChatID       int64
	Name         string
	Users        int
	NewestUpdate time.Time // zero when no stamp is pending
}

// RegistryStats summarises registry contents for diagnostics.
type RegistryStats struct {
	Chats        []Chat
	Activity     []ChatActivity // chats holding positions
	DisplayNames map[int64]string
}
