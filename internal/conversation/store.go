// Package conversation tracks short-lived prompts waiting for a user's reply.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Prompt kinds.
const (
	KindTimingDestination = "timing_destination"
)

// Key identifies the user a prompt waits on, inside one chat.
type Key struct {
	ChatID int64
	UserID int64
}

// Prompt is a pending question. Only the latest prompt per Key is kept.
type Prompt struct {
	ID        string
	Kind      string
	Key       Key
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	prompts map[Key]Prompt
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		prompts: make(map[Key]Prompt),
		ttl:     ttl,
		now:     now,
	}
}

// Begin opens a prompt for the key. A prompt already pending for the key is
// replaced; the second return value reports whether that happened.
func (s *Store) Begin(key Key, kind string) (Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	old, replaced := s.prompts[key]
	if replaced && !now.Before(old.ExpiresAt) {
		replaced = false
	}

	p := Prompt{
		ID:        uuid.New().String(),
		Kind:      kind,
		Key:       key,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.prompts[key] = p

	if replaced {
		log.WithFields(log.Fields{"chat_id": key.ChatID, "user_id": key.UserID, "replaced": old.ID}).Info("Pending prompt replaced by a newer request")
	}
	return p, replaced
}

// Take removes and returns the live prompt for the key.
func (s *Store) Take(key Key) (Prompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prompts[key]
	if !ok {
		return Prompt{}, false
	}
	delete(s.prompts, key)
	if !s.now().Before(p.ExpiresAt) {
		return Prompt{}, false
	}
	return p, true
}

// Pending reports whether a live prompt exists for the key.
func (s *Store) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.prompts[key]
	return ok && s.now().Before(p.ExpiresAt)
}

// Expire drops every prompt that timed out at now. Expired prompts are abandoned silently.
func (s *Store) Expire(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, p := range s.prompts {
		if !now.Before(p.ExpiresAt) {
			delete(s.prompts, key)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
