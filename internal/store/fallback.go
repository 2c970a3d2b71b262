package store

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/quillforge/proposalgen/internal/model/intake"
)

// fallback implements SessionStore over an optional durable backend and an
// always-present memory backend. Durable failures are logged and served
// from memory; callers only ever see success or absence. Writes to the same
// session are serialized by a per-session mutex so the last accepted
// submission wins deterministically.
type fallback struct {
	durable Backend
	memory  *Memory

	locks    sync.Map // session id -> *sync.Mutex
	degraded atomic.Bool
}

func newFallback(durable Backend) *fallback {
	f := &fallback{
		durable: durable,
		memory:  NewMemory(),
	}
	if durable == nil {
		f.degraded.Store(true)
	}
	return f
}

func (f *fallback) sessionLock(sessionID string) *sync.Mutex {
	v, _ := f.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func (f *fallback) noteFailure(op string, err error) {
	f.degraded.Store(true)
	log.Printf("[store] %s failed on database, serving from memory: %v", op, err)
}

// Create allocates a session id and persists the empty session. A durable
// write failure drops that session to memory instead of failing the caller.
func (f *fallback) Create(ctx context.Context, user intake.User, metadata map[string]any) intake.Session {
	now := time.Now().UTC()
	session := intake.Session{
		ID:        uuid.NewString(),
		User:      user,
		Answers:   make(map[string]intake.Answer),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}

	if f.durable != nil {
		if err := f.durable.Create(ctx, session); err != nil {
			f.noteFailure("create", err)
			f.memory.Create(ctx, session)
		} else {
			log.Printf("[store] created session %s for user %s", session.ID, user.Name)
		}
	} else {
		f.memory.Create(ctx, session)
		log.Printf("[store] created session %s for user %s in memory", session.ID, user.Name)
	}

	return session.Clone()
}

// Get fetches the aggregate. A durable miss still consults the memory
// shadow, so sessions that fell back during an outage stay reachable.
func (f *fallback) Get(ctx context.Context, sessionID string) (intake.Session, bool) {
	if f.durable != nil {
		session, err := f.durable.Get(ctx, sessionID)
		if err != nil {
			f.noteFailure("get", err)
		} else if session != nil {
			return *session, true
		}
	}

	session, _ := f.memory.Get(ctx, sessionID)
	if session == nil {
		return intake.Session{}, false
	}
	return *session, true
}

// UpsertAnswer validates that the session exists and writes the answer.
// Returns false for an unknown session; never raises.
func (f *fallback) UpsertAnswer(ctx context.Context, sessionID string, answer intake.Answer) bool {
	lock := f.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if answer.CreatedAt.IsZero() {
		answer.CreatedAt = time.Now().UTC()
	}

	if f.durable != nil {
		ok, err := f.durable.UpsertAnswer(ctx, sessionID, answer)
		if err != nil {
			f.noteFailure("upsert answer", err)
		} else if ok {
			return true
		} else {
			// Unknown to the database; the session may live only in the
			// memory shadow after a failed durable create.
			ok, _ := f.memory.UpsertAnswer(ctx, sessionID, answer)
			return ok
		}
	}

	ok, _ := f.memory.UpsertAnswer(ctx, sessionID, answer)
	return ok
}

// Answers returns the session's answer map, empty when the id is unknown.
func (f *fallback) Answers(ctx context.Context, sessionID string) map[string]intake.Answer {
	session, ok := f.Get(ctx, sessionID)
	if !ok {
		return map[string]intake.Answer{}
	}
	return session.Answers
}

// Degraded reports whether the store is memory-only or has served any
// operation from the fallback.
func (f *fallback) Degraded() bool {
	return f.degraded.Load()
}

// Mode names the configured backing storage.
func (f *fallback) Mode() string {
	if f.durable == nil {
		return "memory"
	}
	return "durable"
}

// Close releases both backends.
func (f *fallback) Close() error {
	if f.durable != nil {
		if err := f.durable.Close(); err != nil {
			return err
		}
	}
	return f.memory.Close()
}
