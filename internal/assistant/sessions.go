package assistant

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxSessions limits concurrent chat sessions to bound memory use
const MaxSessions = 50

// SessionMaxAge is how long idle sessions are kept before cleanup
const SessionMaxAge = 30 * time.Minute

// MaxHistory caps the number of turns kept per session
const MaxHistory = 40

// SessionManager holds the conversation history per chat session.
type SessionManager struct {
	sessions map[string]*sessionState
	mu       sync.RWMutex
}

type sessionState struct {
	history      []Message
	lastAccessed time.Time
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*sessionState)}
}

// Acquire returns the history for a session, creating it when the id is
// empty or unknown. The returned id identifies the session in follow-up
// requests.
func (m *SessionManager) Acquire(sessionID string) (string, []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessionID != "" {
		if state, ok := m.sessions[sessionID]; ok {
			state.lastAccessed = time.Now()
			history := make([]Message, len(state.history))
			copy(history, state.history)
			return sessionID, history
		}
	}

	m.evictIfNeeded()

	sessionID = uuid.New().String()
	m.sessions[sessionID] = &sessionState{lastAccessed: time.Now()}
	return sessionID, nil
}

// Append records a completed exchange on a session.
func (m *SessionManager) Append(sessionID string, turns ...Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	state.history = append(state.history, turns...)
	if len(state.history) > MaxHistory {
		state.history = state.history[len(state.history)-MaxHistory:]
	}
	state.lastAccessed = time.Now()
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions drops sessions idle for longer than maxAge.
func (m *SessionManager) CleanupOldSessions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for id, state := range m.sessions {
		if state.lastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			fmt.Printf("[Assistant] Cleaned up idle session %s\n", id[:8])
		}
	}
}

// evictIfNeeded removes the least recently used sessions when at
// capacity. Caller must hold the lock.
func (m *SessionManager) evictIfNeeded() {
	for len(m.sessions) >= MaxSessions {
		oldestID := ""
		var oldest time.Time
		for id, state := range m.sessions {
			if oldestID == "" || state.lastAccessed.Before(oldest) {
				oldestID = id
				oldest = state.lastAccessed
			}
		}
		delete(m.sessions, oldestID)
		fmt.Printf("[Assistant] Evicted session %s to free capacity\n", oldestID[:8])
	}
}
