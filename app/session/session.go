// Package session owns server-side conversation state for interactive
// clients. The chat API itself stays stateless; a session is an opt-in handle
// supplied by the caller.
package session

import (
	"sync"
	"time"

	"legalrag/app/agent"
	"legalrag/types"

	"github.com/google/uuid"
)

const greeting = "Hello! I am your AI Assistant. How can I help you today?"

type Store struct {
	mu           sync.RWMutex
	sessions     map[string][]types.Message
	lastAccessed map[string]time.Time
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[string][]types.Message),
		lastAccessed: make(map[string]time.Time),
	}
}

// Create seeds a new session with the persona system message and the opening
// assistant greeting, and returns its id.
func (s *Store) Create() (string, []types.Message) {
	history := []types.Message{
		{Role: types.RoleSystem, Content: agent.UsecasePrompt()},
		{Role: types.RoleAssistant, Content: greeting},
	}

	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = history
	s.lastAccessed[id] = time.Now()

	return id, history
}

// Get returns a copy of the stored history so callers can never mutate
// session state in place.
func (s *Store) Get(id string) ([]types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastAccessed[id] = time.Now()

	out := make([]types.Message, len(history))
	copy(out, history)
	return out, true
}

// Save stores the post-turn history. Stored histories always hold the
// original, unenriched user turns.
func (s *Store) Save(id string, history []types.Message) {
	out := make([]types.Message, len(history))
	copy(out, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = out
	s.lastAccessed[id] = time.Now()
}

// CleanupExpired drops sessions idle for longer than maxAge and reports how
// many were removed.
func (s *Store) CleanupExpired(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, last := range s.lastAccessed {
		if now.Sub(last) > maxAge {
			delete(s.sessions, id)
			delete(s.lastAccessed, id)
			removed++
		}
	}
	return removed
}
