package proposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	proposalService "github.com/quillforge/proposalgen/internal/service/proposal"
	"github.com/quillforge/proposalgen/pkg/utils"
)

// Handler exposes document synthesis: format catalog, one-shot generation
// and the SSE streaming variant.
type Handler struct {
	svc *proposalService.Service
}

// New creates the proposal handler.
func New(svc *proposalService.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the proposal endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/formats", h.handleFormats)
	r.Post("/sessions/{sessionID}/proposals", h.handleGenerate)
	r.Get("/sessions/{sessionID}/proposals/stream", h.handleStream)
}

type generateRequest struct {
	Format          string `json:"format"`
	IncludeMetadata bool   `json:"includeMetadata"`
}

func (h *Handler) handleFormats(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string][]string{"formats": proposalService.Formats()})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Generate(r.Context(), sessionID, payload.Format)
	if err != nil {
		respondGenerationError(w, err)
		return
	}

	response := map[string]any{
		"proposal": result.Proposal,
		"format":   result.Format,
	}
	if payload.IncludeMetadata {
		response["metadata"] = result.Metadata
	}

	utils.RespondJSON(w, http.StatusOK, response)
}

// handleStream emits the document as SSE data frames, closed by a [DONE]
// marker. A mid-stream failure is reported inline as an [ERROR] frame since
// the status line is already on the wire.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	format := r.URL.Query().Get("format")

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	stream, err := h.svc.Stream(r.Context(), sessionID, format)
	if err != nil {
		respondGenerationError(w, err)
		return
	}
	defer stream.Close()

	utils.SetupSSEHeaders(w)

	for {
		message, err := stream.Recv()
		if err == io.EOF {
			utils.SendSSEData(w, flusher, "[DONE]")
			return
		}
		if err != nil {
			log.Printf("[proposal] stream error for session=%s: %v", sessionID, err)
			utils.SendSSEData(w, flusher, fmt.Sprintf("[ERROR] %v", err))
			return
		}
		if message.Content != "" {
			utils.SendSSEData(w, flusher, message.Content)
		}
	}
}

func respondGenerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, proposalService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, proposalService.ErrModelUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "proposal generation unavailable")
	default:
		log.Printf("[proposal] generation failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate proposal")
	}
}
