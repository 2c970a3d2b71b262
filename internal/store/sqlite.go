package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/quillforge/proposalgen/internal/model/intake"
	_ "modernc.org/sqlite"
)

// SQLite is the durable backend. Sessions and answers live in two tables;
// answers are keyed by (session_id, question) so re-submitting a question
// overwrites in place while keeping the original created_at.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database, tunes the pool and provisions the schema.
func NewSQLite(dsn string) (*SQLite, error) {
	if !strings.Contains(dsn, "?") {
		// Plain file path: enable WAL and foreign keys for cascade deletes.
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLite) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS answers (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		question_type TEXT NOT NULL DEFAULT 'GENERAL',
		created_at INTEGER NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (session_id, question)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Create inserts the session row with an empty answer set.
func (s *SQLite) Create(ctx context.Context, session intake.Session) error {
	userData, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	metadata, err := encodeMetadata(session.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	query := `INSERT INTO sessions (id, user_data, created_at, updated_at, metadata) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		session.ID, string(userData),
		session.CreatedAt.Unix(), session.UpdatedAt.Unix(), string(metadata),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Get assembles the aggregate from the session row plus its answer rows.
func (s *SQLite) Get(ctx context.Context, sessionID string) (*intake.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_data, created_at, updated_at, metadata FROM sessions WHERE id = ?`,
		sessionID,
	)

	var (
		session            intake.Session
		userData, metadata string
		createdAt, updated int64
	)
	err := row.Scan(&session.ID, &userData, &createdAt, &updated, &metadata)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	if err := json.Unmarshal([]byte(userData), &session.User); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if session.Metadata, err = decodeMetadata(metadata); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}
	session.CreatedAt = time.Unix(createdAt, 0).UTC()
	session.UpdatedAt = time.Unix(updated, 0).UTC()
	session.Answers = make(map[string]intake.Answer)

	rows, err := s.db.QueryContext(ctx,
		`SELECT question, answer, question_type, created_at, metadata FROM answers WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			answer      intake.Answer
			answeredAt  int64
			rawMetadata string
		)
		if err := rows.Scan(&answer.Question, &answer.Answer, &answer.QuestionType, &answeredAt, &rawMetadata); err != nil {
			return nil, fmt.Errorf("scan answer row: %w", err)
		}
		if answer.Metadata, err = decodeMetadata(rawMetadata); err != nil {
			return nil, fmt.Errorf("decode answer metadata: %w", err)
		}
		answer.CreatedAt = time.Unix(answeredAt, 0).UTC()
		session.Answers[answer.Question] = answer
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}

	return &session, nil
}

// UpsertAnswer writes the answer and refreshes the session's updated_at in
// one transaction, so a failed answer write never leaves a phantom update
// on the session row. The conflict clause leaves created_at alone so the
// first submission's timestamp survives overwrites.
func (s *SQLite) UpsertAnswer(ctx context.Context, sessionID string, answer intake.Answer) (bool, error) {
	metadata, err := encodeMetadata(answer.Metadata)
	if err != nil {
		return false, fmt.Errorf("encode answer metadata: %w", err)
	}

	createdAt := answer.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = ?)`, sessionID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return false, nil
	}

	query := `
	INSERT INTO answers (session_id, question, answer, question_type, created_at, metadata)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id, question) DO UPDATE SET
		answer = excluded.answer,
		question_type = excluded.question_type,
		metadata = excluded.metadata`
	if _, err := tx.ExecContext(ctx, query,
		sessionID, answer.Question, answer.Answer, answer.QuestionType,
		createdAt.Unix(), string(metadata),
	); err != nil {
		return false, fmt.Errorf("upsert answer: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Unix(), sessionID,
	); err != nil {
		return false, fmt.Errorf("touch session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit answer: %w", err)
	}
	return true, nil
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func encodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func decodeMetadata(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
