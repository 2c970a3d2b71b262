// Package ws carries the guided intake over a websocket: the client sends
// answers, the server replies with validation verdicts and the next
// question to ask.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	intakeModel "github.com/quillforge/proposalgen/internal/model/intake"
	"github.com/quillforge/proposalgen/internal/service/planner"
	"github.com/quillforge/proposalgen/internal/store"
	"github.com/quillforge/proposalgen/internal/validation"
)

// Handler upgrades intake connections and runs the answer/question loop.
type Handler struct {
	store    store.SessionStore
	planner  *planner.Service
	upgrader websocket.Upgrader
}

// New creates the websocket intake handler.
func New(sessions store.SessionStore, plannerSvc *planner.Service) *Handler {
	return &Handler{
		store:   sessions,
		planner: plannerSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/intake/{sessionID}", h.handleIntake)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type answerPayload struct {
	Question     string         `json:"question"`
	Answer       string         `json:"answer"`
	QuestionType string         `json:"questionType"`
	Metadata     map[string]any `json:"metadata"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (h *Handler) handleIntake(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, ok := h.store.Get(r.Context(), sessionID); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] intake connection opened for session=%s", sessionID)

	// Open with the current question so the client can render immediately.
	h.sendQuestion(r.Context(), conn, sessionID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed for session=%s: %v", sessionID, err)
			}
			return
		}

		switch inbound.Type {
		case "answer":
			h.handleAnswer(r.Context(), conn, sessionID, inbound.Data)
		case "next":
			h.sendQuestion(r.Context(), conn, sessionID)
		default:
			h.send(conn, sessionID, "error", map[string]string{
				"message": "unsupported message type: " + inbound.Type,
			})
		}
	}
}

func (h *Handler) handleAnswer(ctx context.Context, conn *websocket.Conn, sessionID string, raw json.RawMessage) {
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.send(conn, sessionID, "error", map[string]string{"message": "invalid answer payload"})
		return
	}
	if payload.Question == "" || payload.Answer == "" {
		h.send(conn, sessionID, "error", map[string]string{"message": "question and answer are required"})
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
			h.send(conn, sessionID, "rejected", map[string]string{"message": rejection.Reason})
			return
		}
		h.send(conn, sessionID, "error", map[string]string{"message": "validation failed"})
		return
	}

	if ok := h.store.UpsertAnswer(ctx, sessionID, answer); !ok {
		h.send(conn, sessionID, "error", map[string]string{"message": "session not found"})
		return
	}

	h.send(conn, sessionID, "accepted", map[string]string{"question": answer.Question})
	h.sendQuestion(ctx, conn, sessionID)
}

func (h *Handler) sendQuestion(ctx context.Context, conn *websocket.Conn, sessionID string) {
	question := h.planner.Next(ctx, sessionID)
	h.send(conn, sessionID, "question", map[string]string{"question": question})
}

func (h *Handler) send(conn *websocket.Conn, sessionID, msgType string, data interface{}) {
	message := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := conn.WriteJSON(message); err != nil {
		log.Printf("[ws] write failed for session=%s: %v", sessionID, err)
	}
}
