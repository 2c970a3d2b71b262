package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-chi/chi/v5"

	"github.com/quillforge/proposalgen/internal/service/planner"
	"github.com/quillforge/proposalgen/internal/store"
	"github.com/quillforge/proposalgen/internal/validation"
)

// stubModel fakes the chat model behind the plausibility evaluator.
type stubModel struct {
	calls   int
	content string
}

func (m *stubModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.calls++
	return schema.AssistantMessage(m.content, nil), nil
}

func (m *stubModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.calls++
	return schema.StreamReaderFromArray([]*schema.Message{schema.AssistantMessage(m.content, nil)}), nil
}

func setupRouter(t *testing.T) (*chi.Mux, store.SessionStore) {
	t.Helper()
	return setupRouterWithJudge(t, nil)
}

func setupRouterWithJudge(t *testing.T, judge model.BaseChatModel) (*chi.Mux, store.SessionStore) {
	t.Helper()
	ctx := context.Background()

	sessions := store.Open("")
	t.Cleanup(func() { sessions.Close() })

	plannerSvc, err := planner.NewService(ctx, sessions, nil)
	if err != nil {
		t.Fatalf("planner.NewService err: %v", err)
	}
	evaluator, err := validation.NewEvaluator(ctx, judge)
	if err != nil {
		t.Fatalf("validation.NewEvaluator err: %v", err)
	}

	handler := New(sessions, plannerSvc, evaluator)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, sessions
}

func createSession(t *testing.T, r *chi.Mux) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"userId":   "u-1",
		"userName": "Ada Lovelace",
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["sessionId"] == "" {
		t.Fatal("expected a session id")
	}
	return body["sessionId"]
}

func submitAnswer(t *testing.T, r *chi.Mux, sessionID string, payload map[string]any) (*httptest.ResponseRecorder, answerResponse) {
	t.Helper()
	raw, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/answers", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var body answerResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, body
}

func TestCreateSessionRequiresUser(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetSessionRoundTrip(t *testing.T) {
	r, _ := setupRouter(t)
	sessionID := createSession(t, r)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
		Answers map[string]any `json:"answers"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.User.Name != "Ada Lovelace" {
		t.Fatalf("unexpected user: %+v", body.User)
	}
	if len(body.Answers) != 0 {
		t.Fatalf("expected no answers yet, got %d", len(body.Answers))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitAnswerStoresAndAdvances(t *testing.T) {
	r, sessions := setupRouter(t)
	sessionID := createSession(t, r)

	resp, body := submitAnswer(t, r, sessionID, map[string]any{
		"question": "What is the name of the project?",
		"answer":   "Orion",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !body.Success {
		t.Fatalf("expected acceptance, got message %q", body.Message)
	}
	if body.NextQuestion != "What are the main goals and objectives of this project?" {
		t.Fatalf("unexpected next question: %q", body.NextQuestion)
	}

	answers := sessions.Answers(context.Background(), sessionID)
	if answers["What is the name of the project?"].Answer != "Orion" {
		t.Fatalf("answer not stored: %+v", answers)
	}
}

func TestSubmitAnswerValidationRejection(t *testing.T) {
	r, sessions := setupRouter(t)
	sessionID := createSession(t, r)

	resp, body := submitAnswer(t, r, sessionID, map[string]any{
		"question":     "What is the estimated budget for this project?",
		"answer":       "abc",
		"questionType": "BUDGET",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("rejections are domain outcomes, expected 200, got %d", resp.Code)
	}
	if body.Success {
		t.Fatal("expected rejection")
	}
	if body.Message == "" {
		t.Fatal("expected a human-readable reason")
	}

	if answers := sessions.Answers(context.Background(), sessionID); len(answers) != 0 {
		t.Fatalf("rejected answer must not be stored, got %d", len(answers))
	}
}

func TestSubmitAnswerUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	resp, body := submitAnswer(t, r, "missing", map[string]any{
		"question": "What is the name of the project?",
		"answer":   "Orion",
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if body.Success {
		t.Fatal("expected failure for unknown session")
	}
}

func TestSubmitAnswerUnknownSessionSkipsEvaluator(t *testing.T) {
	judge := &stubModel{content: `{"pass": true, "reason": "ok"}`}
	r, _ := setupRouterWithJudge(t, judge)

	resp, _ := submitAnswer(t, r, "missing", map[string]any{
		"question": "What is the name of the project?",
		"answer":   "Orion",
	})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if judge.calls != 0 {
		t.Fatalf("unknown sessions must not spend a model call, got %d", judge.calls)
	}
}

func TestSubmitAnswerStoresDespiteFailedVerdict(t *testing.T) {
	judge := &stubModel{content: `{"pass": false, "reason": "does not address the question"}`}
	r, sessions := setupRouterWithJudge(t, judge)
	sessionID := createSession(t, r)

	resp, body := submitAnswer(t, r, sessionID, map[string]any{
		"question": "What is the name of the project?",
		"answer":   "Orion",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !body.Success {
		t.Fatalf("advisory verdict must not block storage, got message %q", body.Message)
	}
	if !strings.Contains(body.Message, "warning") {
		t.Fatalf("expected warning annotation, got %q", body.Message)
	}
	if judge.calls != 1 {
		t.Fatalf("expected one plausibility call, got %d", judge.calls)
	}

	answers := sessions.Answers(context.Background(), sessionID)
	if answers["What is the name of the project?"].Answer != "Orion" {
		t.Fatalf("answer not stored: %+v", answers)
	}
}

func TestNextQuestionForFreshSession(t *testing.T) {
	r, _ := setupRouter(t)
	sessionID := createSession(t, r)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID+"/questions/next", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["question"] != "What is the name of the project?" {
		t.Fatalf("unexpected first question: %q", body["question"])
	}
}

func TestNextQuestionUnknownSession(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/questions/next", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
