package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"cardgen/internal/cards"
	"cardgen/internal/models"
)

// ErrNoFlashcards is returned when a session has no loaded set.
var ErrNoFlashcards = errors.New("no flashcards loaded")

// Session owns one user's flashcard set, display settings and study queue.
// A set is replaced whole by Load and never partially updated.
type Session struct {
	ID        string
	CreatedAt time.Time

	generating *semaphore.Weighted

	mu        sync.RWMutex
	set       models.FlashcardSet
	settings  models.DisplaySettings
	schedule  *cards.Schedule
	updatedAt time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		updatedAt:  now,
		generating: semaphore.NewWeighted(1),
	}
}

// TryBeginGeneration reports whether the caller may start a generation call.
// It fails while another call for this session is outstanding.
func (s *Session) TryBeginGeneration() bool {
	return s.generating.TryAcquire(1)
}

func (s *Session) EndGeneration() {
	s.generating.Release(1)
}

// Load replaces the current set and resets display settings and study state.
func (s *Session) Load(set models.FlashcardSet, now time.Time) {
	stored := set.Clone()
	schedule := cards.NewSchedule(len(stored), now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = stored
	s.settings = models.DisplaySettings{}
	s.schedule = schedule
	s.updatedAt = now
}

// Clear discards the set, its settings and its study state.
func (s *Session) Clear(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = nil
	s.settings = models.DisplaySettings{}
	s.schedule = nil
	s.updatedAt = now
}

// Snapshot returns a copy of the current set and settings. ok is false when
// nothing is loaded.
func (s *Session) Snapshot() (set models.FlashcardSet, settings models.DisplaySettings, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.set == nil {
		return nil, s.settings, false
	}
	return s.set.Clone(), s.settings, true
}

// Apply runs the settings reducer and returns the new settings.
func (s *Session) Apply(action models.Action, now time.Time) models.DisplaySettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = cards.Reduce(s.settings, action)
	s.updatedAt = now
	return s.settings
}

// NextStudy returns the card due soonest together with its content.
func (s *Session) NextStudy(now time.Time) (cards.StudyItem, models.Flashcard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schedule == nil {
		return cards.StudyItem{}, models.Flashcard{}, ErrNoFlashcards
	}
	item, ok := s.schedule.Next(now)
	if !ok {
		return cards.StudyItem{}, models.Flashcard{}, ErrNoFlashcards
	}
	return item, s.set[item.Index], nil
}

// Review rates the card with the given 1-based canonical number.
func (s *Session) Review(number int, rating string, now time.Time) (cards.StudyItem, error) {
	parsed, err := cards.ParseRating(rating)
	if err != nil {
		return cards.StudyItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return cards.StudyItem{}, ErrNoFlashcards
	}
	item, err := s.schedule.Review(number-1, parsed, now)
	if err != nil {
		return cards.StudyItem{}, fmt.Errorf("review card %d: %w", number, err)
	}
	s.updatedAt = now
	return item, nil
}

// UpdatedAt is the last time the session was used.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.updatedAt) {
		s.updatedAt = now
	}
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(s.UpdatedAt())
}

// DefaultSessionIdleTTL applies when NewSessionManager gets a non-positive TTL.
const DefaultSessionIdleTTL = 2 * time.Hour

// SessionManager tracks live sessions by id. A session unused for longer
// than the idle TTL has ended: Get no longer finds it and Create sweeps it.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

func NewSessionManager(idleTTL time.Duration) *SessionManager {
	if idleTTL <= 0 {
		idleTTL = DefaultSessionIdleTTL
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		idleTTL:  idleTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *SessionManager) Create() *Session {
	now := m.now()
	session := newSession(now)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked(now)
	m.sessions[session.ID] = session
	return session
}

// Get returns a live session and marks it as used.
func (m *SessionManager) Get(id string) (*Session, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if session.idleSince(now) > m.idleTTL {
		delete(m.sessions, id)
		return nil, false
	}
	session.touch(now)
	return session, true
}

// Sweep drops every idle session and reports how many were removed.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now())
}

func (m *SessionManager) sweepLocked(now time.Time) int {
	removed := 0
	for id, session := range m.sessions {
		if session.idleSince(now) > m.idleTTL {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Remove ends a session and drops everything it held.
func (m *SessionManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
