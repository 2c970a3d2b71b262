// Package store persists intake sessions and their answers. A durable
// SQLite backend is preferred; when it is unavailable the store degrades to
// an in-process map. Consumers never observe storage errors: failed durable
// operations are logged and served from the fallback instead.
package store

import (
	"context"
	"log"

	"github.com/quillforge/proposalgen/internal/model/intake"
)

// Backend is one storage implementation. Get reports absence with a nil
// session and nil error; UpsertAnswer reports an unknown session with
// (false, nil).
type Backend interface {
	Create(ctx context.Context, session intake.Session) error
	Get(ctx context.Context, sessionID string) (*intake.Session, error)
	UpsertAnswer(ctx context.Context, sessionID string, answer intake.Answer) (bool, error)
	Close() error
}

// SessionStore is the surface the rest of the service depends on. All
// methods succeed or report absence; none of them surface storage errors.
type SessionStore interface {
	Create(ctx context.Context, user intake.User, metadata map[string]any) intake.Session
	Get(ctx context.Context, sessionID string) (intake.Session, bool)
	UpsertAnswer(ctx context.Context, sessionID string, answer intake.Answer) bool
	Answers(ctx context.Context, sessionID string) map[string]intake.Answer
	Degraded() bool
	Mode() string
	Close() error
}

// Open selects the backing storage once, at startup. An empty DSN or an
// unreachable database yields a memory-only store; the decision is not
// revisited per operation.
func Open(dsn string) SessionStore {
	if dsn == "" {
		log.Printf("[store] no storage DSN configured, using in-memory sessions")
		return newFallback(nil)
	}

	durable, err := NewSQLite(dsn)
	if err != nil {
		log.Printf("[store] failed to open database: %v", err)
		log.Printf("[store] falling back to in-memory sessions")
		return newFallback(nil)
	}

	log.Printf("[store] database ready at %s", dsn)
	return newFallback(durable)
}
