package intake

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	intakeModel "github.com/quillforge/proposalgen/internal/model/intake"
	"github.com/quillforge/proposalgen/internal/service/planner"
	"github.com/quillforge/proposalgen/internal/store"
	"github.com/quillforge/proposalgen/internal/validation"
	"github.com/quillforge/proposalgen/pkg/utils"
)

// Handler serves the session lifecycle: create, inspect, submit answers,
// fetch the next question.
type Handler struct {
	store     store.SessionStore
	planner   *planner.Service
	evaluator *validation.Evaluator
}

// New creates the intake handler.
func New(sessions store.SessionStore, plannerSvc *planner.Service, evaluator *validation.Evaluator) *Handler {
	return &Handler{
		store:     sessions,
		planner:   plannerSvc,
		evaluator: evaluator,
	}
}

// RegisterRoutes mounts the intake endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Post("/sessions/{sessionID}/answers", h.handleSubmitAnswer)
	r.Get("/sessions/{sessionID}/questions/next", h.handleNextQuestion)
}

type createSessionRequest struct {
	UserID    string         `json:"userId"`
	UserName  string         `json:"userName"`
	UserEmail string         `json:"userEmail"`
	Metadata  map[string]any `json:"metadata"`
}

type answerRequest struct {
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	QuestionType string         `json:"questionType"`
	Metadata     map[string]any `json:"metadata"`
}

type answerResponse struct {
	Success      bool   `json:"success"`
	NextQuestion string `json:"nextQuestion,omitempty"`
	Message      string `json:"message,omitempty"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.UserID == "" || payload.UserName == "" {
		utils.RespondError(w, http.StatusBadRequest, "userId and userName are required")
		return
	}

	user := intakeModel.User{
		ID:    payload.UserID,
		Name:  payload.UserName,
		Email: payload.UserEmail,
	}

	session := h.store.Create(r.Context(), user, payload.Metadata)
	utils.RespondJSON(w, http.StatusCreated, map[string]string{"sessionId": session.ID})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, ok := h.store.Get(r.Context(), sessionID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, session)
}

// handleSubmitAnswer is the single parse point for answer payloads: the
// request body is decoded into one canonical Answer before validation and
// storage ever see it.
func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload answerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Question == "" || payload.Answer == "" {
		utils.RespondError(w, http.StatusBadRequest, "question and answer are required")
		return
	}

	if payload.QuestionType == "" {
		payload.QuestionType = intakeModel.TypeGeneral
	}

	answer := intakeModel.Answer{
		Question:     payload.Question,
		Answer:       payload.Answer,
		QuestionType: payload.QuestionType,
		Metadata:     payload.Metadata,
	}

	if err := validation.Validate(answer); err != nil {
		var rejection *validation.Rejection
		if errors.As(err, &rejection) {
			utils.RespondJSON(w, http.StatusOK, answerResponse{Success: false, Message: rejection.Reason})
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "validation failed")
		return
	}

	if ok := h.store.UpsertAnswer(r.Context(), sessionID, answer); !ok {
		utils.RespondJSON(w, http.StatusNotFound, answerResponse{Success: false, Message: "session not found"})
		return
	}

	// Advisory only: a failed plausibility verdict annotates the response
	// but never blocks storage. Runs after the store write so unknown
	// sessions never spend a model call.
	message := "answer stored"
	if h.evaluator.Enabled() {
		if ok, reason := h.evaluator.Check(r.Context(), answer); !ok {
			message = fmt.Sprintf("answer stored with warning: %s", reason)
		}
	}

	next := h.planner.Next(r.Context(), sessionID)
	utils.RespondJSON(w, http.StatusOK, answerResponse{
		Success:      true,
		NextQuestion: next,
		Message:      message,
	})
}

func (h *Handler) handleNextQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, ok := h.store.Get(r.Context(), sessionID); !ok {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	question := h.planner.Next(r.Context(), sessionID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"question": question})
}
