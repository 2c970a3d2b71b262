package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quillforge/proposalgen/internal/model/intake"
)

func testUser() intake.User {
	return intake.User{ID: "u-1", Name: "Ada Lovelace", Email: "ada@example.com"}
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := Open("")
	defer s.Close()
	ctx := context.Background()

	session := s.Create(ctx, testUser(), map[string]any{"channel": "web"})
	if session.ID == "" {
		t.Fatal("expected a session id")
	}

	got, ok := s.Get(ctx, session.ID)
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.User != testUser() {
		t.Fatalf("user mismatch: %+v", got.User)
	}
	if len(got.Answers) != 0 {
		t.Fatalf("expected empty answer map, got %d entries", len(got.Answers))
	}
}

func TestGetUnknownSession(t *testing.T) {
	s := Open("")
	defer s.Close()

	if _, ok := s.Get(context.Background(), "missing"); ok {
		t.Fatal("expected absence for unknown session id")
	}
}

func TestUpsertAnswerUnknownSession(t *testing.T) {
	s := Open("")
	defer s.Close()

	ok := s.UpsertAnswer(context.Background(), "missing", intake.Answer{
		Question: "What is the name of the project?",
		Answer:   "Orion",
	})
	if ok {
		t.Fatal("expected upsert against unknown session to report false")
	}
	if answers := s.Answers(context.Background(), "missing"); len(answers) != 0 {
		t.Fatalf("expected no stored answers, got %d", len(answers))
	}
}

func TestUpsertAnswerOverwritesByQuestion(t *testing.T) {
	s := Open("")
	defer s.Close()
	ctx := context.Background()

	session := s.Create(ctx, testUser(), nil)
	question := "What is the name of the project?"

	if ok := s.UpsertAnswer(ctx, session.ID, intake.Answer{Question: question, Answer: "Orion"}); !ok {
		t.Fatal("first upsert failed")
	}
	first, _ := s.Get(ctx, session.ID)
	firstCreated := first.Answers[question].CreatedAt

	if ok := s.UpsertAnswer(ctx, session.ID, intake.Answer{Question: question, Answer: "Orion Mark II"}); !ok {
		t.Fatal("second upsert failed")
	}

	got, _ := s.Get(ctx, session.ID)
	if len(got.Answers) != 1 {
		t.Fatalf("expected exactly one answer, got %d", len(got.Answers))
	}
	stored := got.Answers[question]
	if stored.Answer != "Orion Mark II" {
		t.Fatalf("expected the second submission to win, got %q", stored.Answer)
	}
	if !stored.CreatedAt.Equal(firstCreated) {
		t.Fatalf("expected created_at of the first write to survive: %v vs %v", stored.CreatedAt, firstCreated)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Fatal("expected updated_at to be refreshed")
	}
}

func TestCallersReceiveCopies(t *testing.T) {
	s := Open("")
	defer s.Close()
	ctx := context.Background()

	session := s.Create(ctx, testUser(), nil)
	s.UpsertAnswer(ctx, session.ID, intake.Answer{Question: "q", Answer: "a"})

	got, _ := s.Get(ctx, session.ID)
	got.Answers["q"] = intake.Answer{Question: "q", Answer: "tampered"}

	again, _ := s.Get(ctx, session.ID)
	if again.Answers["q"].Answer != "a" {
		t.Fatal("stored state mutated through a returned copy")
	}
}

// brokenBackend simulates a durable backend that accepted the initial
// connection but fails every operation afterwards.
type brokenBackend struct{}

var errBackendDown = errors.New("backend down")

func (brokenBackend) Create(context.Context, intake.Session) error { return errBackendDown }
func (brokenBackend) Get(context.Context, string) (*intake.Session, error) {
	return nil, errBackendDown
}
func (brokenBackend) UpsertAnswer(context.Context, string, intake.Answer) (bool, error) {
	return false, errBackendDown
}
func (brokenBackend) Close() error { return nil }

func TestFallbackServesThroughOutage(t *testing.T) {
	s := newFallback(brokenBackend{})
	ctx := context.Background()

	session := s.Create(ctx, testUser(), nil)
	if session.ID == "" {
		t.Fatal("expected a session id despite the outage")
	}

	if ok := s.UpsertAnswer(ctx, session.ID, intake.Answer{Question: "q", Answer: "answer"}); !ok {
		t.Fatal("expected upsert to succeed via the memory shadow")
	}

	got, ok := s.Get(ctx, session.ID)
	if !ok {
		t.Fatal("expected session to be served from memory")
	}
	if got.Answers["q"].Answer != "answer" {
		t.Fatalf("unexpected answer: %+v", got.Answers["q"])
	}

	if !s.Degraded() {
		t.Fatal("expected the store to report degradation")
	}
	if s.Mode() != "durable" {
		t.Fatalf("expected durable mode, got %s", s.Mode())
	}
}

func TestMemoryOnlyModeIsDegraded(t *testing.T) {
	s := Open("")
	defer s.Close()

	if !s.Degraded() {
		t.Fatal("memory-only store should report degraded")
	}
	if s.Mode() != "memory" {
		t.Fatalf("expected memory mode, got %s", s.Mode())
	}
}

func TestConcurrentUpsertsSameQuestion(t *testing.T) {
	s := Open("")
	defer s.Close()
	ctx := context.Background()

	session := s.Create(ctx, testUser(), nil)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			s.UpsertAnswer(ctx, session.ID, intake.Answer{
				Question: "What is the name of the project?",
				Answer:   "candidate",
			})
		}(i)
	}
	for i := 0; i < 8; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("upserts did not finish")
		}
	}

	got, _ := s.Get(ctx, session.ID)
	if len(got.Answers) != 1 {
		t.Fatalf("expected one stored answer, got %d", len(got.Answers))
	}
}
