package store

import (
	"context"
	"sync"
	"time"

	"github.com/quillforge/proposalgen/internal/model/intake"
)

// Memory keeps full session aggregates in a mutex-guarded map. It backs the
// memory-only mode and shadows the durable backend during outages.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]intake.Session
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]intake.Session)}
}

// Create stores a private copy of the session.
func (m *Memory) Create(_ context.Context, session intake.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session.Clone()
	return nil
}

// Get returns a copy of the session, or nil when the id is unknown.
func (m *Memory) Get(_ context.Context, sessionID string) (*intake.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	copied := session.Clone()
	return &copied, nil
}

// UpsertAnswer inserts or overwrites the answer keyed by its question text.
// The created_at of the first write survives later overwrites, matching the
// durable schema.
func (m *Memory) UpsertAnswer(_ context.Context, sessionID string, answer intake.Answer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return false, nil
	}

	stored := answer.Clone()
	if existing, ok := session.Answers[answer.Question]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	session.Answers[answer.Question] = stored
	session.UpdatedAt = time.Now().UTC()
	m.sessions[sessionID] = session
	return true, nil
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error {
	return nil
}
