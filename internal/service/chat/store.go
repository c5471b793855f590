// Package chat keeps per-session conversation history in memory.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/code-with-happy/ai-voice-agent/internal/model/chat"
)

var (
	ErrSessionIDRequired = errors.New("session id is required")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidRole       = errors.New("invalid message role")
)

type sessionEntry struct {
	session  chat.Session
	messages []chat.Message
}

// Store owns every session of the process. History is append-only and
// sessions are never evicted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	turnMu sync.Mutex
	turns  map[string]*sync.Mutex

	now func() time.Time
}

// NewStore bootstraps an empty in-memory store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionEntry),
		turns:    make(map[string]*sync.Mutex),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the session for id, creating it on first use.
func (s *Store) GetOrCreate(_ context.Context, sessionID string) (chat.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return chat.Session{}, ErrSessionIDRequired
	}

	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return entry.session, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[sessionID]; ok {
		return entry.session, nil
	}
	entry = &sessionEntry{
		session:  chat.Session{ID: sessionID, CreatedAt: s.now()},
		messages: make([]chat.Message, 0, 16),
	}
	s.sessions[sessionID] = entry
	return entry.session, nil
}

// Get retrieves an existing session.
func (s *Store) Get(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return entry.session, nil
}

// Append adds a message to the end of the session history.
func (s *Store) Append(_ context.Context, sessionID string, role chat.Role, text string) (chat.Message, error) {
	if !role.Valid() {
		return chat.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		CreatedAt: s.now(),
	}
	entry.messages = append(entry.messages, message)
	return message, nil
}

// History returns a copy of the ordered messages of a session.
func (s *Store) History(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(entry.messages))
	copy(copied, entry.messages)
	return copied, nil
}

// Lock serializes turns of one session. Call the returned func to release.
func (s *Store) Lock(sessionID string) func() {
	s.turnMu.Lock()
	mu, ok := s.turns[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.turns[sessionID] = mu
	}
	s.turnMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Len reports the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
